package jpegr

import (
	"errors"
	"testing"
)

// newP010 builds a contiguous flat-color P010 image in BT.2100.
func newP010(w, h int, y, cb, cr uint16) *P010Image {
	buf := make([]uint16, w*h+w*(h/2))
	for i := 0; i < w*h; i++ {
		buf[i] = y
	}
	for i := w * h; i < len(buf); i += 2 {
		buf[i] = cb
		buf[i+1] = cr
	}
	return &P010Image{Width: w, Height: h, Gamut: GamutBT2100, Y: buf}
}

// newYUV420 builds a planar flat-color I420 image in BT.709.
func newYUV420(w, h int, y, cb, cr byte) *YUV420Image {
	img := &YUV420Image{
		Width:  w,
		Height: h,
		Gamut:  GamutBT709,
		Y:      make([]byte, w*h),
		U:      make([]byte, w/2*h/2),
		V:      make([]byte, w/2*h/2),
	}
	for i := range img.Y {
		img.Y[i] = y
	}
	for i := range img.U {
		img.U[i] = cb
		img.V[i] = cr
	}
	return img
}

func TestGainMapSize(t *testing.T) {
	cases := []struct {
		w, h, mapW, mapH int
	}{
		{16, 16, 16, 4},
		{64, 64, 16, 16},
		{100, 100, 32, 26},
		{8, 8, 16, 2},
		{1920, 1080, 480, 270},
		{7680, 4320, 1920, 1080},
	}
	for _, c := range cases {
		mw, mh := gainMapSize(c.w, c.h)
		if mw != c.mapW || mh != c.mapH {
			t.Fatalf("gainMapSize(%d, %d) = %dx%d, want %dx%d", c.w, c.h, mw, mh, c.mapW, c.mapH)
		}
		if mw%jpegBlockAlign != 0 {
			t.Fatalf("map width %d not block aligned", mw)
		}
		if mh%2 != 0 {
			t.Fatalf("map height %d not even", mh)
		}
	}
}

func TestGenerateGainMapFlatWhite(t *testing.T) {
	// HLG peak white against SDR white: the gain hits the metadata
	// ceiling, so every sample quantizes to 255.
	hdr := newP010(16, 16, 940, 512, 512)
	sdr := newYUV420(16, 16, 255, 128, 128)

	gm, meta, err := generateGainMap(hdr, sdr, TransferHLG)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gm.Width != 16 || gm.Height != 4 {
		t.Fatalf("gain map %dx%d", gm.Width, gm.Height)
	}
	if meta.MaxContentBoost <= 1 {
		t.Fatalf("max content boost %v", meta.MaxContentBoost)
	}
	for i, v := range gm.Data {
		if v < 250 {
			t.Fatalf("sample %d = %d, want near 255", i, v)
		}
	}
}

func TestGenerateGainMapFlatBlack(t *testing.T) {
	hdr := newP010(16, 16, 64, 512, 512)
	sdr := newYUV420(16, 16, 0, 128, 128)

	gm, _, err := generateGainMap(hdr, sdr, TransferHLG)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, v := range gm.Data {
		if v > 5 {
			t.Fatalf("sample %d = %d, want near 0", i, v)
		}
	}
}

func TestGenerateGainMapDimensionMismatch(t *testing.T) {
	hdr := newP010(16, 16, 940, 512, 512)
	sdr := newYUV420(20, 16, 255, 128, 128)
	if _, _, err := generateGainMap(hdr, sdr, TransferHLG); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestToneMapFlatFields(t *testing.T) {
	cases := []struct {
		name     string
		y        uint16
		wantYMin byte
		wantYMax byte
	}{
		{name: "peak white", y: 940, wantYMin: 230, wantYMax: 255},
		{name: "black", y: 64, wantYMin: 0, wantYMax: 5},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			hdr := newP010(16, 16, c.y, 512, 512)
			sdr := toneMapToSDR(hdr, TransferHLG)
			if sdr.Width != 16 || sdr.Height != 16 {
				t.Fatalf("sdr %dx%d", sdr.Width, sdr.Height)
			}
			for i, v := range sdr.Y {
				if v < c.wantYMin || v > c.wantYMax {
					t.Fatalf("luma[%d] = %d, want in [%d, %d]", i, v, c.wantYMin, c.wantYMax)
				}
			}
			// Neutral input stays neutral.
			for i, v := range sdr.U {
				if v < 123 || v > 133 {
					t.Fatalf("cb[%d] = %d, want near 128", i, v)
				}
			}
		})
	}
}

func TestBoostWeight(t *testing.T) {
	meta := &Metadata{
		MaxContentBoost: 4,
		MinContentBoost: 1,
		HDRCapacityMin:  1,
		HDRCapacityMax:  4,
	}
	cases := []struct {
		boost float32
		want  float32
	}{
		{boost: 1, want: 0},
		{boost: 2, want: 0.5},
		{boost: 4, want: 1},
		{boost: 16, want: 1}, // clamped to capacity max
	}
	for _, c := range cases {
		if got := boostWeight(c.boost, meta); absf(got-c.want) > 1e-5 {
			t.Fatalf("boostWeight(%v) = %v, want %v", c.boost, got, c.want)
		}
	}
}

func TestApplyGainAtExtremes(t *testing.T) {
	meta := defaultMetadata(TransferHLG)

	// Weight zero leaves the value untouched up to the offsets.
	got := applyGain(rgb{0.5, 0.5, 0.5}, 0.5, meta, 0)
	if absf(got.r-0.5) > 1e-4 {
		t.Fatalf("zero-weight gain changed 0.5 to %v", got.r)
	}

	// Full weight at the gain ceiling applies the max boost.
	boost := meta.MaxContentBoost
	got = applyGain(rgb{0.5, 0.5, 0.5}, 1, meta, 1)
	if absf(got.r-0.5*boost) > 1e-3*boost {
		t.Fatalf("full gain of 0.5 = %v, want near %v", got.r, 0.5*boost)
	}
}

func TestUpsampleGainMapSkipsAlignmentPadding(t *testing.T) {
	// A 16x16 image carries a 16x4 map where only the first four
	// columns hold samples; the rest is block-alignment fill. The
	// upsampled plane must be driven by the sample columns alone.
	gm := &GrayImage{Width: 16, Height: 4, Data: make([]byte, 16*4)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			v := byte(99)
			if x < 4 {
				v = byte(10 + 10*x)
			}
			gm.Data[y*16+x] = v
		}
	}

	full := upsampleGainMap(gm, 16, 16)
	if got := full.Pix[8*full.Stride+0]; got < 5 || got > 15 {
		t.Fatalf("left edge reads %d, want near 10", got)
	}
	if got := full.Pix[8*full.Stride+15]; got < 35 || got > 45 {
		t.Fatalf("right edge reads %d, want near 40 (alignment fill leaked in)", got)
	}
}
