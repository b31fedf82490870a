package jpegr

import "math"

type rgb struct {
	r, g, b float32
}

func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (v rgb) clamp01() rgb {
	return rgb{r: clamp01(v.r), g: clamp01(v.g), b: clamp01(v.b)}
}

func max3(a, b, c float32) float32 {
	if a >= b && a >= c {
		return a
	}
	if b >= a && b >= c {
		return b
	}
	return c
}

// Transfer functions. Inputs and outputs are normalized to [0, 1].

func srgbInvOetf(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

func srgbOetf(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

const (
	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

func hlgInvOetf(e float32) float32 {
	if e <= 0.5 {
		return e * e / 3.0
	}
	return (float32(math.Exp(float64(e-hlgC)/hlgA)) + hlgB) / 12.0
}

func hlgOetf(v float32) float32 {
	if v <= 1.0/12.0 {
		return float32(math.Sqrt(float64(3.0 * v)))
	}
	return hlgA*float32(math.Log(float64(12.0*v-hlgB))) + hlgC
}

const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

func pqInvOetf(e float32) float32 {
	p := math.Pow(float64(e), 1.0/pqM2)
	num := math.Max(p-pqC1, 0)
	den := pqC2 - pqC3*p
	return float32(math.Pow(num/den, 1.0/pqM1))
}

func pqOetf(v float32) float32 {
	p := math.Pow(float64(v), pqM1)
	return float32(math.Pow((pqC1+pqC2*p)/(1.0+pqC3*p), pqM2))
}

// invOetf maps an encoded sample to normalized linear light.
func invOetf(tf ColorTransfer) func(float32) float32 {
	switch tf {
	case TransferHLG:
		return hlgInvOetf
	case TransferPQ:
		return pqInvOetf
	case TransferSRGB:
		return srgbInvOetf
	default: // TransferLinear
		return func(v float32) float32 { return v }
	}
}

// peakNits returns the reference white of a transfer function.
func peakNits(tf ColorTransfer) float32 {
	switch tf {
	case TransferHLG:
		return hlgMaxNits
	case TransferPQ:
		return pqMaxNits
	default:
		return defaultHDRWhiteNits
	}
}

// Gamut conversion through D65 XYZ.

func rgbToXYZ(v rgb, from ColorGamut) (x, y, z float32) {
	switch from {
	case GamutDisplayP3:
		return 0.48657095*v.r + 0.2656677*v.g + 0.19821729*v.b,
			0.22897457*v.r + 0.69173855*v.g + 0.07928691*v.b,
			0.04511338*v.g + 1.0439444*v.b
	case GamutBT2100:
		return 0.6369580*v.r + 0.1446169*v.g + 0.1688810*v.b,
			0.2627002*v.r + 0.6779981*v.g + 0.0593017*v.b,
			0.0280727*v.g + 1.0609851*v.b
	default: // BT.709
		return 0.4123908*v.r + 0.35758433*v.g + 0.1804808*v.b,
			0.212639*v.r + 0.71516865*v.g + 0.07219232*v.b,
			0.019330818*v.r + 0.11919478*v.g + 0.95053214*v.b
	}
}

func xyzToRGB(x, y, z float32, to ColorGamut) rgb {
	switch to {
	case GamutDisplayP3:
		return rgb{
			r: 2.493497*x - 0.9313836*y - 0.4027108*z,
			g: -0.829489*x + 1.7626641*y + 0.023624685*z,
			b: 0.03584583*x - 0.07617239*y + 0.9568845*z,
		}
	case GamutBT2100:
		return rgb{
			r: 1.7166512*x - 0.3556708*y - 0.2533663*z,
			g: -0.6666844*x + 1.6164812*y + 0.0157685*z,
			b: 0.0176399*x - 0.0427706*y + 0.9421031*z,
		}
	default: // BT.709
		return rgb{
			r: 3.24097*x - 1.5373832*y - 0.49861076*z,
			g: -0.96924365*x + 1.8759675*y + 0.041555058*z,
			b: 0.05563008*x - 0.20397696*y + 1.0569715*z,
		}
	}
}

func convertGamut(v rgb, from, to ColorGamut) rgb {
	if from == to || from == GamutUnspecified || to == GamutUnspecified {
		return v
	}
	x, y, z := rgbToXYZ(v, from)
	return xyzToRGB(x, y, z, to)
}

// luminance returns relative luminance of a linear pixel in its gamut.
func luminance(v rgb, gamut ColorGamut) float32 {
	switch gamut {
	case GamutDisplayP3:
		return 0.20949*v.r + 0.72160*v.g + 0.06891*v.b
	case GamutBT2100:
		return 0.2627*v.r + 0.6780*v.g + 0.0593*v.b
	default:
		return 0.2126*v.r + 0.7152*v.g + 0.0722*v.b
	}
}

// yuv601ToRGB converts a full-range JPEG YCbCr triple to encoded R'G'B'.
func yuv601ToRGB(y, cb, cr byte) rgb {
	fy := float32(y) / 255.0
	fu := float32(cb)/255.0 - 0.5
	fv := float32(cr)/255.0 - 0.5
	return rgb{
		r: fy + 1.402*fv,
		g: fy - 0.344136*fu - 0.714136*fv,
		b: fy + 1.772*fu,
	}.clamp01()
}

// p010ToRGB converts a limited-range 10-bit BT.2100 YCbCr triple to
// encoded R'G'B'.
func p010ToRGB(y, cb, cr uint16) rgb {
	fy := (float32(y) - 64.0) / 876.0
	fu := (float32(cb)-64.0)/896.0 - 0.5
	fv := (float32(cr)-64.0)/896.0 - 0.5
	return rgb{
		r: fy + 1.4746*fv,
		g: fy - 0.16455313*fu - 0.57135313*fv,
		b: fy + 1.8814*fu,
	}.clamp01()
}

// computeGain returns the log2 HDR/SDR ratio for a pair of luminances in
// nits. Offsets keep near-zero denominators from exploding.
func computeGain(sdr, hdr float32) float32 {
	gain := log2f((hdr + gainOffsetHDR) / (sdr + gainOffsetSDR))
	if sdr < 2.0/255.0*sdrWhiteNits && gain > 2.3 {
		// Dark SDR samples carry mostly quantization noise.
		gain = 2.3
	}
	return gain
}

// affineMapGain quantizes a log2 gain into [0, 255] with
// round-to-nearest.
func affineMapGain(gainLog2, minLog2, maxLog2 float32) uint8 {
	denom := maxLog2 - minLog2
	if denom == 0 {
		denom = 1
	}
	mapped := clamp01((gainLog2 - minLog2) / denom)
	return uint8(mapped*255.0 + 0.5)
}

// halfFromFloat32 converts to IEEE 754 binary16 with round-to-nearest-even.
func halfFromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	switch {
	case exp >= 0x1F: // overflow or inf/nan
		if bits&0x7FFFFFFF > 0x7F800000 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		if mant&0x1000 != 0 {
			half++
		}
		return half
	}
}
