package jpegr

import (
	"fmt"
	"image"

	"github.com/vearutop/jpegr/internal/jpegx"
)

const (
	defaultGainMapQuality = 85
	maxQuality            = 100
)

// JpegR encodes and decodes gain-map HDR JPEG containers. The zero
// value uses the standard library JPEG codec; every method is safe for
// concurrent use as long as buffers are not shared across calls.
type JpegR struct {
	// Codec overrides the JPEG compress/decompress service.
	Codec jpegx.Codec
}

// New returns a pipeline backed by the standard library JPEG codec.
func New() *JpegR {
	return &JpegR{}
}

func (j *JpegR) codec() jpegx.Codec {
	if j.Codec != nil {
		return j.Codec
	}
	return jpegx.Std{}
}

// EncodeHDR builds a JPEG-R container from an HDR image alone. The SDR
// rendering is synthesized by tone mapping before the normal pipeline
// runs.
func (j *JpegR) EncodeHDR(hdr *P010Image, tf ColorTransfer, dest *CompressedImage, quality int, icc []byte) error {
	if err := validateEncodeArgs(hdr, tf, dest, quality); err != nil {
		return err
	}
	sdr := toneMapToSDR(hdr, tf)
	return j.encodeFromRaw(hdr, sdr, nil, tf, dest, quality, icc)
}

// EncodeHDRSDR builds a JPEG-R container from co-registered HDR and SDR
// images.
func (j *JpegR) EncodeHDRSDR(hdr *P010Image, sdr *YUV420Image, tf ColorTransfer, dest *CompressedImage, quality int, icc []byte) error {
	if err := validateEncodeArgs(hdr, tf, dest, quality); err != nil {
		return err
	}
	if err := sdr.validate(); err != nil {
		return err
	}
	return j.encodeFromRaw(hdr, sdr, nil, tf, dest, quality, icc)
}

// EncodeHDRSDRCompressed is EncodeHDRSDR with an already-compressed SDR
// rendering, skipping the primary re-compression.
func (j *JpegR) EncodeHDRSDRCompressed(hdr *P010Image, sdr *YUV420Image, sdrJPEG *CompressedImage, tf ColorTransfer, dest *CompressedImage) error {
	if err := validateEncodeArgs(hdr, tf, dest, defaultGainMapQuality); err != nil {
		return err
	}
	if err := sdr.validate(); err != nil {
		return err
	}
	if err := sdrJPEG.validIn(); err != nil {
		return err
	}
	if w, h, err := jpegDimensions(sdrJPEG.Bytes()); err != nil {
		return err
	} else if w != sdr.Width || h != sdr.Height {
		return fmt.Errorf("sdr jpeg %dx%d does not match raw sdr %dx%d: %w",
			w, h, sdr.Width, sdr.Height, ErrInvalidArgument)
	}
	return j.encodeFromRaw(hdr, sdr, sdrJPEG, tf, dest, 0, nil)
}

// EncodeHDRCompressed builds a JPEG-R container from an HDR image and a
// compressed SDR rendering, decompressing the latter to compute the
// gain map.
func (j *JpegR) EncodeHDRCompressed(hdr *P010Image, sdrJPEG *CompressedImage, tf ColorTransfer, dest *CompressedImage) error {
	if err := validateEncodeArgs(hdr, tf, dest, defaultGainMapQuality); err != nil {
		return err
	}
	if err := sdrJPEG.validIn(); err != nil {
		return err
	}
	sdrImg, err := j.codec().Decompress(sdrJPEG.Bytes())
	if err != nil {
		return fmt.Errorf("decompress sdr: %v: %w", err, ErrCodecFailure)
	}
	b := sdrImg.Bounds()
	if b.Dx() != hdr.Width || b.Dy() != hdr.Height {
		return fmt.Errorf("hdr %dx%d and sdr jpeg %dx%d dimensions differ: %w",
			hdr.Width, hdr.Height, b.Dx(), b.Dy(), ErrInvalidArgument)
	}

	meta := defaultMetadata(tf)
	gm := renderGainMap(hdr.Width, hdr.Height,
		hdrLuminanceSampler(hdr, tf),
		imageLuminanceSampler(sdrImg, sdrJPEG.Gamut, hdr.Gamut),
		meta)
	return j.compressAndMux(sdrJPEG.Bytes(), gm, meta, dest, nil, sdrJPEG.Gamut)
}

// EncodeCompressed multiplexes already-compressed primary and gain-map
// images with explicit metadata; no pixel-level work is performed.
// EXIF and ICC segments of the primary are carried into the container.
func (j *JpegR) EncodeCompressed(primaryJPEG, gainmapJPEG *CompressedImage, meta *Metadata, dest *CompressedImage) error {
	if err := primaryJPEG.validIn(); err != nil {
		return err
	}
	if err := gainmapJPEG.validIn(); err != nil {
		return err
	}
	if err := meta.validate(); err != nil {
		return err
	}
	if err := dest.validOut(); err != nil {
		return err
	}
	exif, icc, err := extractExifAndICC(primaryJPEG.Bytes())
	if err != nil {
		return err
	}
	container, err := assembleContainer(primaryJPEG.Bytes(), gainmapJPEG.Bytes(), meta, exif, icc)
	if err != nil {
		return err
	}
	if err := dest.setBytes(container); err != nil {
		return err
	}
	dest.Gamut = primaryJPEG.Gamut
	return nil
}

// encodeFromRaw runs the shared gain-map pipeline. When sdrJPEG is nil
// the SDR rendering is compressed here.
func (j *JpegR) encodeFromRaw(hdr *P010Image, sdr *YUV420Image, sdrJPEG *CompressedImage, tf ColorTransfer, dest *CompressedImage, quality int, icc []byte) error {
	gm, meta, err := generateGainMap(hdr, sdr, tf)
	if err != nil {
		return err
	}
	primary := sdrJPEG.BytesOrNil()
	if primary == nil {
		primary, err = j.codec().Compress(sdr.toYCbCr(), quality)
		if err != nil {
			return fmt.Errorf("compress sdr: %v: %w", err, ErrCodecFailure)
		}
	}
	return j.compressAndMux(primary, gm, meta, dest, icc, sdr.Gamut)
}

func (j *JpegR) compressAndMux(primary []byte, gm *GrayImage, meta *Metadata, dest *CompressedImage, icc []byte, gamut ColorGamut) error {
	gmJPEG, err := j.codec().Compress(gm.toGray(), defaultGainMapQuality)
	if err != nil {
		return fmt.Errorf("compress gain map: %v: %w", err, ErrCodecFailure)
	}
	container, err := assembleContainer(primary, gmJPEG, meta, nil, icc)
	if err != nil {
		return err
	}
	if err := dest.setBytes(container); err != nil {
		return err
	}
	dest.Gamut = gamut
	return nil
}

func validateEncodeArgs(hdr *P010Image, tf ColorTransfer, dest *CompressedImage, quality int) error {
	if err := hdr.validate(); err != nil {
		return err
	}
	if !tf.valid() {
		return fmt.Errorf("transfer function %d out of range: %w", tf, ErrInvalidArgument)
	}
	if quality < 0 || quality > maxQuality {
		return fmt.Errorf("quality %d out of range: %w", quality, ErrInvalidArgument)
	}
	return dest.validOut()
}

// BytesOrNil returns the valid bytes, or nil for a nil receiver.
func (c *CompressedImage) BytesOrNil() []byte {
	if c == nil {
		return nil
	}
	return c.Bytes()
}

// toYCbCr wraps the planes as a 4:2:0 image without copying.
func (p *YUV420Image) toYCbCr() *image.YCbCr {
	yp, up, vp := p.planes()
	return &image.YCbCr{
		Y:              yp,
		Cb:             up,
		Cr:             vp,
		YStride:        p.yStride(),
		CStride:        p.uvStride(),
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, p.Width, p.Height),
	}
}

// toGray wraps the plane as an image without copying.
func (p *GrayImage) toGray() *image.Gray {
	return &image.Gray{
		Pix:    p.Data,
		Stride: p.stride(),
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// imageLuminanceSampler adapts a decoded SDR image to the gain-map
// pipeline, mirroring sdrLuminanceSampler.
func imageLuminanceSampler(img image.Image, gamut, hdrGamut ColorGamut) pixelSampler {
	return func(x, y int) float32 {
		b := img.Bounds()
		lin := sampleLinear(img, b.Min.X+x, b.Min.Y+y)
		lin = convertGamut(lin, gamut, hdrGamut)
		g := hdrGamut
		if g == GamutUnspecified {
			g = gamut
		}
		return sdrWhiteNits * luminance(lin, g)
	}
}
