package jpegx

import (
	"bytes"
	"image"

	"github.com/gen2brain/jpegli"
)

// Jpegli encodes through the jpegli encoder for better rate/distortion
// than the standard library at the same quality setting.
type Jpegli struct {
	// ChromaSubsampling overrides the encoder default when non-zero.
	ChromaSubsampling image.YCbCrSubsampleRatio
}

func (c Jpegli) Compress(m image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	opts := &jpegli.EncodingOptions{
		Quality:           quality,
		ChromaSubsampling: c.ChromaSubsampling,
	}
	if err := jpegli.Encode(&buf, m, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Jpegli) Decompress(data []byte) (image.Image, error) {
	return jpegli.Decode(bytes.NewReader(data))
}
