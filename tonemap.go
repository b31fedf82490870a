package jpegr

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// toneMapToSDR synthesizes an SDR rendering from an HDR-only input.
// Per-pixel Reinhard on the max RGB channel compresses highlights into
// the SDR range; chroma is then subsampled to 4:2:0.
func toneMapToSDR(hdr *P010Image, tf ColorTransfer) *YUV420Image {
	w, h := hdr.Width, hdr.Height
	inv := invOetf(tf)
	boost := peakNits(tf) / sdrWhiteNits

	out := &YUV420Image{
		Width:  w,
		Height: h,
		Gamut:  hdr.Gamut,
		Y:      make([]byte, w*h),
		U:      make([]byte, w/2*h/2),
		V:      make([]byte, w/2*h/2),
	}
	cbFull := image.NewGray(image.Rect(0, 0, w, h))
	crFull := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cb, cr := hdr.chromaAt(x, y)
			e := p010ToRGB(hdr.lumaAt(x, y), cb, cr)
			lin := rgb{r: inv(e.r), g: inv(e.g), b: inv(e.b)}
			// Relative to SDR white.
			lin.r *= boost
			lin.g *= boost
			lin.b *= boost
			m := max3(lin.r, lin.g, lin.b)
			if m > 0 {
				scale := (1.0 + m/(boost*boost)) / (1.0 + m)
				lin.r *= scale
				lin.g *= scale
				lin.b *= scale
			}
			lin = lin.clamp01()
			r8 := uint8(srgbOetf(lin.r)*255.0 + 0.5)
			g8 := uint8(srgbOetf(lin.g)*255.0 + 0.5)
			b8 := uint8(srgbOetf(lin.b)*255.0 + 0.5)
			yy, ycb, ycr := color.RGBToYCbCr(r8, g8, b8)
			out.Y[y*w+x] = yy
			cbFull.SetGray(x, y, color.Gray{Y: ycb})
			crFull.SetGray(x, y, color.Gray{Y: ycr})
		}
	}

	// 2x2 chroma averaging via a bilinear half-scale.
	half := image.Rect(0, 0, w/2, h/2)
	cbHalf := image.NewGray(half)
	crHalf := image.NewGray(half)
	draw.BiLinear.Scale(cbHalf, half, cbFull, cbFull.Bounds(), draw.Src, nil)
	draw.BiLinear.Scale(crHalf, half, crFull, crFull.Bounds(), draw.Src, nil)
	for y := 0; y < h/2; y++ {
		copy(out.U[y*(w/2):(y+1)*(w/2)], cbHalf.Pix[y*cbHalf.Stride:])
		copy(out.V[y*(w/2):(y+1)*(w/2)], crHalf.Pix[y*crHalf.Stride:])
	}
	return out
}
