package jpegr

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
)

// boostWeight maps the requested display boost onto [0, 1] in the log2
// domain relative to the metadata's content boost ceiling.
func boostWeight(maxDisplayBoost float32, meta *Metadata) float32 {
	boost := maxDisplayBoost
	if boost < meta.MinContentBoost {
		boost = meta.MinContentBoost
	}
	if boost > meta.MaxContentBoost {
		boost = meta.MaxContentBoost
	}
	denom := log2f(meta.MaxContentBoost)
	if denom <= 0 {
		return 0
	}
	return clamp01(log2f(boost) / denom)
}

// applyGain recombines one SDR pixel with its gain-map sample. gain is
// the normalized [0, 1] map value, weight the display-boost weighting.
func applyGain(e rgb, gain float32, meta *Metadata, weight float32) rgb {
	if meta.Gamma != 0 && meta.Gamma != 1 {
		gain = powf(gain, 1.0/meta.Gamma)
	}
	logBoost := log2f(meta.MinContentBoost)*(1.0-gain) + log2f(meta.MaxContentBoost)*gain
	factor := exp2f(logBoost * weight)
	return rgb{
		r: (e.r+meta.OffsetSDR)*factor - meta.OffsetHDR,
		g: (e.g+meta.OffsetSDR)*factor - meta.OffsetHDR,
		b: (e.b+meta.OffsetSDR)*factor - meta.OffsetHDR,
	}
}

// applyGainMap upsamples the gain map to the SDR resolution and writes
// the recombined raster into dest in the requested output format.
func applyGainMap(sdr image.Image, gainmap *GrayImage, meta *Metadata, maxDisplayBoost float32, format OutputFormat, dest *DestImage) error {
	if err := meta.validate(); err != nil {
		return err
	}
	b := sdr.Bounds()
	w, h := b.Dx(), b.Dy()
	if dest.Width != w || dest.Height != h {
		return fmt.Errorf("destination %dx%d does not match image %dx%d: %w",
			dest.Width, dest.Height, w, h, ErrInvalidArgument)
	}

	var gainAt func(x, y int) float32
	if gainmap != nil {
		full := upsampleGainMap(gainmap, w, h)
		stride := full.Stride
		pix := full.Pix
		gainAt = func(x, y int) float32 {
			return float32(pix[y*stride+x]) / 255.0
		}
	} else {
		gainAt = func(x, y int) float32 { return 0 }
	}
	weight := boostWeight(maxDisplayBoost, meta)

	put, err := destWriter(format)
	if err != nil {
		return err
	}
	bpp := format.bytesPerPixel()
	stride := dest.stride()
	for y := 0; y < h; y++ {
		row := dest.Data[y*stride*bpp:]
		for x := 0; x < w; x++ {
			e := sampleLinear(sdr, b.Min.X+x, b.Min.Y+y)
			out := applyGain(e, gainAt(x, y), meta, weight)
			put(row[x*bpp:], out)
		}
	}
	return nil
}

// upsampleGainMap stretches the coarse map to full resolution with
// bilinear filtering. Alignment padding replicates the edge sample and
// carries no signal; it is trimmed before scaling so map cells stay
// registered with the pixel blocks they were sampled from.
func upsampleGainMap(gm *GrayImage, w, h int) *image.Gray {
	mapW, mapH := gm.Width, gm.Height
	if cw := (w + GainMapScaleFactor - 1) / GainMapScaleFactor; cw < mapW {
		mapW = cw
	}
	if ch := (h + GainMapScaleFactor - 1) / GainMapScaleFactor; ch < mapH {
		mapH = ch
	}
	src := &image.Gray{
		Pix:    gm.Data,
		Stride: gm.stride(),
		Rect:   image.Rect(0, 0, mapW, mapH),
	}
	if mapW == w && mapH == h {
		return src
	}
	out := resize.Resize(uint(w), uint(h), src, resize.Bilinear)
	if g, ok := out.(*image.Gray); ok {
		return g
	}
	// resize preserves the gray color model; this is a safety net.
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, out.At(x, y))
		}
	}
	return g
}

// sampleLinear reads a pixel and removes the sRGB encoding.
func sampleLinear(img image.Image, x, y int) rgb {
	r, g, b, _ := img.At(x, y).RGBA()
	return rgb{
		r: srgbInvOetf(float32(r) / 65535.0),
		g: srgbInvOetf(float32(g) / 65535.0),
		b: srgbInvOetf(float32(b) / 65535.0),
	}
}

// destWriter returns the pixel serializer for an output format.
func destWriter(format OutputFormat) (func(dst []byte, v rgb), error) {
	switch format {
	case OutputSDR:
		return func(dst []byte, v rgb) {
			v = v.clamp01()
			dst[0] = uint8(srgbOetf(v.r)*255.0 + 0.5)
			dst[1] = uint8(srgbOetf(v.g)*255.0 + 0.5)
			dst[2] = uint8(srgbOetf(v.b)*255.0 + 0.5)
			dst[3] = 0xFF
		}, nil
	case OutputHDRGamma:
		return func(dst []byte, v rgb) {
			// Scene light for HLG re-encoding, 1.0 = HLG peak.
			scale := float32(sdrWhiteNits / hlgMaxNits)
			r := uint32(clamp01(hlgOetf(clamp01(v.r*scale)))*1023.0 + 0.5)
			g := uint32(clamp01(hlgOetf(clamp01(v.g*scale)))*1023.0 + 0.5)
			b := uint32(clamp01(hlgOetf(clamp01(v.b*scale)))*1023.0 + 0.5)
			binary.LittleEndian.PutUint32(dst, r|g<<10|b<<20|0x3<<30)
		}, nil
	case OutputHDRLinear:
		return func(dst []byte, v rgb) {
			binary.LittleEndian.PutUint16(dst[0:], halfFromFloat32(v.r))
			binary.LittleEndian.PutUint16(dst[2:], halfFromFloat32(v.g))
			binary.LittleEndian.PutUint16(dst[4:], halfFromFloat32(v.b))
			binary.LittleEndian.PutUint16(dst[6:], halfFromFloat32(1.0))
		}, nil
	default:
		return nil, fmt.Errorf("output format %d: %w", format, ErrUnsupportedConfig)
	}
}

func powf(v, p float32) float32 {
	return float32(math.Pow(float64(v), float64(p)))
}
