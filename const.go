package jpegr

const (
	sdrWhiteNits        = 203.0
	hlgMaxNits          = 1000.0
	pqMaxNits           = 10000.0
	defaultHDRWhiteNits = 1000.0
)

const (
	// GainMapScaleFactor is the edge of the block that contributes one
	// gain-map sample. It is a tuned constant, not derived from the
	// image dimensions.
	GainMapScaleFactor = 4

	// jpegBlockAlign keeps the gain-map width re-encodable as a plain
	// JPEG without padding artifacts.
	jpegBlockAlign = 16
)

const (
	// MinDimension is the smallest supported image edge.
	MinDimension = 8
	// MaxWidth and MaxHeight bound supported image dimensions (8K).
	MaxWidth  = 7680
	MaxHeight = 4320
)

const (
	jpegrVersion = "1.3.1"

	gainOffsetSDR = 1e-7
	gainOffsetHDR = 1e-7
)
