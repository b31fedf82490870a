package jpegr

import "fmt"

// pixelSampler yields linear-light luminance in nits at full-resolution
// coordinates.
type pixelSampler func(x, y int) float32

// gainMapSize returns the gain-map dimensions for an image: one sample
// per GainMapScaleFactor block, width rounded up to the JPEG block
// alignment, height rounded to the nearest even value.
func gainMapSize(w, h int) (mapW, mapH int) {
	mapW = w / GainMapScaleFactor
	mapH = h / GainMapScaleFactor
	mapW = (mapW + jpegBlockAlign - 1) / jpegBlockAlign * jpegBlockAlign
	mapH = (mapH + 1) >> 1 << 1
	return mapW, mapH
}

// generateGainMap computes the gain map and its metadata from
// co-registered HDR and SDR images of equal dimensions.
func generateGainMap(hdr *P010Image, sdr *YUV420Image, tf ColorTransfer) (*GrayImage, *Metadata, error) {
	if hdr.Width != sdr.Width || hdr.Height != sdr.Height {
		return nil, nil, fmt.Errorf("hdr %dx%d and sdr %dx%d dimensions differ: %w",
			hdr.Width, hdr.Height, sdr.Width, sdr.Height, ErrInvalidArgument)
	}
	meta := defaultMetadata(tf)
	hdrNits := hdrLuminanceSampler(hdr, tf)
	sdrNits := sdrLuminanceSampler(sdr, hdr.Gamut)
	gm := renderGainMap(hdr.Width, hdr.Height, hdrNits, sdrNits, meta)
	return gm, meta, nil
}

// renderGainMap samples the block-representative pixel of each gain-map
// cell, clamping coordinates so alignment padding replicates the edge.
func renderGainMap(w, h int, hdrNits, sdrNits pixelSampler, meta *Metadata) *GrayImage {
	mapW, mapH := gainMapSize(w, h)
	out := &GrayImage{Width: mapW, Height: mapH, Data: make([]byte, mapW*mapH)}
	minLog2 := log2f(meta.MinContentBoost)
	maxLog2 := log2f(meta.MaxContentBoost)
	for my := 0; my < mapH; my++ {
		y := my * GainMapScaleFactor
		if y > h-1 {
			y = h - 1
		}
		for mx := 0; mx < mapW; mx++ {
			x := mx * GainMapScaleFactor
			if x > w-1 {
				x = w - 1
			}
			gain := computeGain(sdrNits(x, y), hdrNits(x, y))
			out.Data[my*mapW+mx] = affineMapGain(gain, minLog2, maxLog2)
		}
	}
	return out
}

// hdrLuminanceSampler decodes a P010 pixel to linear luminance in nits.
func hdrLuminanceSampler(img *P010Image, tf ColorTransfer) pixelSampler {
	inv := invOetf(tf)
	peak := peakNits(tf)
	gamut := img.Gamut
	if gamut == GamutUnspecified {
		gamut = GamutBT2100
	}
	return func(x, y int) float32 {
		cb, cr := img.chromaAt(x, y)
		e := p010ToRGB(img.lumaAt(x, y), cb, cr)
		lin := rgb{r: inv(e.r), g: inv(e.g), b: inv(e.b)}
		return peak * luminance(lin, gamut)
	}
}

// sdrLuminanceSampler decodes an I420 pixel to linear luminance in nits,
// converted into the HDR gamut so both samplers are co-sited.
func sdrLuminanceSampler(img *YUV420Image, hdrGamut ColorGamut) pixelSampler {
	return func(x, y int) float32 {
		yy, cb, cr := img.yuvAt(x, y)
		e := yuv601ToRGB(yy, cb, cr)
		lin := rgb{r: srgbInvOetf(e.r), g: srgbInvOetf(e.g), b: srgbInvOetf(e.b)}
		lin = convertGamut(lin, img.Gamut, hdrGamut)
		g := hdrGamut
		if g == GamutUnspecified {
			g = img.Gamut
		}
		return sdrWhiteNits * luminance(lin, g)
	}
}
