package jpegr

import (
	"math"
	"testing"
)

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestTransferFunctionInverses(t *testing.T) {
	pairs := []struct {
		name string
		fwd  func(float32) float32
		inv  func(float32) float32
		tol  float32
	}{
		{name: "srgb", fwd: srgbOetf, inv: srgbInvOetf, tol: 1e-5},
		{name: "hlg", fwd: hlgOetf, inv: hlgInvOetf, tol: 1e-4},
		{name: "pq", fwd: pqOetf, inv: pqInvOetf, tol: 1e-3},
	}
	for _, p := range pairs {
		p := p
		t.Run(p.name, func(t *testing.T) {
			for i := 0; i <= 100; i++ {
				v := float32(i) / 100
				got := p.inv(p.fwd(v))
				if absf(got-v) > p.tol {
					t.Fatalf("%s round trip at %v: got %v", p.name, v, got)
				}
			}
		})
	}
}

func TestSRGBAnchorPoints(t *testing.T) {
	if got := srgbOetf(0); got != 0 {
		t.Fatalf("srgbOetf(0) = %v", got)
	}
	if got := srgbOetf(1); absf(got-1) > 1e-6 {
		t.Fatalf("srgbOetf(1) = %v", got)
	}
	// Linear segment below the knee.
	if got := srgbOetf(0.001); absf(got-0.001*12.92) > 1e-6 {
		t.Fatalf("srgbOetf in linear segment = %v", got)
	}
}

func TestGamutConversionRoundTrip(t *testing.T) {
	gamuts := []ColorGamut{GamutBT709, GamutDisplayP3, GamutBT2100}
	samples := []rgb{
		{0, 0, 0},
		{1, 1, 1},
		{0.25, 0.5, 0.75},
		{0.9, 0.1, 0.3},
	}
	for _, from := range gamuts {
		for _, to := range gamuts {
			for _, s := range samples {
				back := convertGamut(convertGamut(s, from, to), to, from)
				if absf(back.r-s.r) > 1e-4 || absf(back.g-s.g) > 1e-4 || absf(back.b-s.b) > 1e-4 {
					t.Fatalf("gamut %d->%d->%d: %v became %v", from, to, from, s, back)
				}
			}
		}
	}
}

func TestGamutConversionIdentity(t *testing.T) {
	s := rgb{0.2, 0.4, 0.6}
	got := convertGamut(s, GamutBT709, GamutBT709)
	if got != s {
		t.Fatalf("same-gamut conversion changed %v to %v", s, got)
	}
}

func TestLuminancePreservedOnWhite(t *testing.T) {
	// Equal-energy white has luminance 1 under every gamut's coefficients.
	for _, g := range []ColorGamut{GamutBT709, GamutDisplayP3, GamutBT2100} {
		if got := luminance(rgb{1, 1, 1}, g); absf(got-1) > 1e-5 {
			t.Fatalf("white luminance in gamut %d = %v", g, got)
		}
	}
}

func TestComputeGain(t *testing.T) {
	// Equal luminance maps to zero log gain.
	if got := computeGain(100, 100); absf(got) > 1e-5 {
		t.Fatalf("equal luminance gain = %v", got)
	}
	// Brighter HDR gives positive gain.
	if got := computeGain(100, 400); absf(got-2) > 1e-4 {
		t.Fatalf("4x boost gain = %v, want 2", got)
	}
	// Near-black SDR must not explode.
	if got := computeGain(0, 10000); got > 2.3+1e-5 {
		t.Fatalf("dark SDR gain not clamped: %v", got)
	}
}

func TestAffineMapGain(t *testing.T) {
	cases := []struct {
		gain, min, max float32
		want           uint8
	}{
		{gain: -2, min: -2, max: 2, want: 0},
		{gain: 2, min: -2, max: 2, want: 255},
		{gain: 0, min: -2, max: 2, want: 128},
		{gain: 5, min: -2, max: 2, want: 255},  // clamped above
		{gain: -5, min: -2, max: 2, want: 0},   // clamped below
		{gain: 0.5, min: 0.5, max: 0.5, want: 0}, // degenerate range
	}
	for _, c := range cases {
		if got := affineMapGain(c.gain, c.min, c.max); got != c.want {
			t.Fatalf("affineMapGain(%v, %v, %v) = %d, want %d", c.gain, c.min, c.max, got, c.want)
		}
	}
}

func TestHalfFromFloat32(t *testing.T) {
	cases := []struct {
		in   float32
		want uint16
	}{
		{in: 0, want: 0x0000},
		{in: 1, want: 0x3C00},
		{in: -1, want: 0xBC00},
		{in: 0.5, want: 0x3800},
		{in: 65504, want: 0x7BFF},           // largest finite half
		{in: 1e9, want: 0x7C00},             // overflow to +inf
		{in: float32(math.Inf(-1)), want: 0xFC00},
	}
	for _, c := range cases {
		if got := halfFromFloat32(c.in); got != c.want {
			t.Fatalf("halfFromFloat32(%v) = %#04x, want %#04x", c.in, got, c.want)
		}
	}
}

func TestP010ToRGBRange(t *testing.T) {
	// Limited-range black and white code points.
	black := p010ToRGB(64, 512, 512)
	if absf(black.r) > 0.01 || absf(black.g) > 0.01 || absf(black.b) > 0.01 {
		t.Fatalf("P010 black decoded to %v", black)
	}
	white := p010ToRGB(940, 512, 512)
	if absf(white.r-1) > 0.01 || absf(white.g-1) > 0.01 || absf(white.b-1) > 0.01 {
		t.Fatalf("P010 white decoded to %v", white)
	}
}

func TestYUV601ToRGBGray(t *testing.T) {
	// Neutral chroma keeps all channels equal to luma.
	got := yuv601ToRGB(128, 128, 128)
	want := float32(128) / 255
	if absf(got.r-want) > 0.005 || absf(got.g-want) > 0.005 || absf(got.b-want) > 0.005 {
		t.Fatalf("gray YUV decoded to %v, want %v per channel", got, want)
	}
}
