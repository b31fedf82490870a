package jpegr

import "errors"

var (
	// ErrInvalidArgument is returned for nil required buffers, inconsistent
	// dimensions, out-of-range enum values or undersized destinations.
	ErrInvalidArgument = errors.New("jpegr: invalid argument")

	// ErrBufferTooSmall is returned when an output would exceed the
	// capacity of the caller-supplied compressed buffer.
	ErrBufferTooSmall = errors.New("jpegr: buffer too small")

	// ErrInvalidContainer is returned for malformed marker sequences or a
	// missing required segment.
	ErrInvalidContainer = errors.New("jpegr: invalid container")

	// ErrUnsupportedConfig is returned when a requested output format or
	// transfer function is not implemented.
	ErrUnsupportedConfig = errors.New("jpegr: unsupported configuration")

	// ErrCodecFailure is returned when the JPEG compress/decompress
	// service reports a failure.
	ErrCodecFailure = errors.New("jpegr: codec failure")
)
