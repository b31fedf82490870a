// Package jpegx is the pluggable baseline JPEG compress/decompress
// service used by the jpegr pipeline. Implementations must be stateless
// per call so concurrent pipeline invocations stay safe.
package jpegx

import (
	"bytes"
	"image"
	"image/jpeg"
)

// Codec compresses and decompresses single baseline JPEG images.
type Codec interface {
	// Compress encodes m at the given quality (0-100).
	Compress(m image.Image, quality int) ([]byte, error)
	// Decompress decodes a baseline JPEG.
	Decompress(data []byte) (image.Image, error)
}

// Std is the standard library codec.
type Std struct{}

func (Std) Compress(m image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, m, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Std) Decompress(data []byte) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(data))
}
