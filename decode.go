package jpegr

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"
)

// neutralMetadata leaves the SDR rendering untouched when a container
// carries no gain map.
func neutralMetadata() *Metadata {
	return &Metadata{
		Version:         jpegrVersion,
		MaxContentBoost: 1.0,
		MinContentBoost: 1.0,
		Gamma:           1.0,
		HDRCapacityMin:  1.0,
		HDRCapacityMax:  1.0,
	}
}

// Decode parses a JPEG-R container and reconstructs the raster at the
// requested display boost and output format. A plain JPEG without a
// gain map is accepted when the SDR rendering satisfies the request
// (OutputSDR, or a display boost of exactly 1). gainMapOut and metaOut,
// when non-nil, receive the decoded gain map and metadata.
func (j *JpegR) Decode(in *CompressedImage, dest *DestImage, maxDisplayBoost float32, format OutputFormat, gainMapOut *GrayImage, metaOut *Metadata) error {
	if err := in.validIn(); err != nil {
		return err
	}
	if !format.valid() {
		return fmt.Errorf("output format %d out of range: %w", format, ErrInvalidArgument)
	}
	if maxDisplayBoost < 1.0 || math.IsNaN(float64(maxDisplayBoost)) || math.IsInf(float64(maxDisplayBoost), 0) {
		return fmt.Errorf("display boost %g outside [1, max float]: %w", maxDisplayBoost, ErrInvalidArgument)
	}
	if dest == nil || dest.Data == nil {
		return fmt.Errorf("destination image missing: %w", ErrInvalidArgument)
	}

	parts, err := parseContainer(in.Bytes())
	if err != nil {
		return err
	}
	data := in.Bytes()
	sdrImg, err := j.codec().Decompress(data[parts.primary[0]:parts.primary[1]])
	if err != nil {
		return fmt.Errorf("decompress primary: %v: %w", err, ErrCodecFailure)
	}
	b := sdrImg.Bounds()
	if dest.Width == 0 && dest.Height == 0 {
		dest.Width, dest.Height = b.Dx(), b.Dy()
	}
	if err := dest.validate(format); err != nil {
		return err
	}

	if !parts.hasGainMap {
		if format != OutputSDR && maxDisplayBoost != 1.0 {
			return fmt.Errorf("hdr reconstruction requested but no gain map present: %w", ErrUnsupportedConfig)
		}
		return applyGainMap(sdrImg, nil, neutralMetadata(), 1.0, format, dest)
	}

	if parts.metadata == nil {
		return fmt.Errorf("gain map present without metadata segment: %w", ErrInvalidContainer)
	}
	meta, err := decodeMetadata(parts.metadata)
	if err != nil {
		return err
	}
	gmImg, err := j.codec().Decompress(data[parts.gainmap[0]:parts.gainmap[1]])
	if err != nil {
		return fmt.Errorf("decompress gain map: %v: %w", err, ErrCodecFailure)
	}
	gm := grayFromImage(gmImg)

	if err := applyGainMap(sdrImg, gm, meta, maxDisplayBoost, format, dest); err != nil {
		return err
	}
	if gainMapOut != nil {
		*gainMapOut = *gm
	}
	if metaOut != nil {
		*metaOut = *meta
	}
	return nil
}

// GetInfo reports container dimensions and the opaque EXIF/ICC payloads
// without decoding pixel data.
func (j *JpegR) GetInfo(in *CompressedImage, info *Info) error {
	if err := in.validIn(); err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("info destination missing: %w", ErrInvalidArgument)
	}
	parts, err := parseContainer(in.Bytes())
	if err != nil {
		return err
	}
	primary := in.Bytes()[parts.primary[0]:parts.primary[1]]
	w, h, err := jpegDimensions(primary)
	if err != nil {
		return err
	}
	exif, icc, err := extractExifAndICC(primary)
	if err != nil {
		return err
	}
	info.Width = w
	info.Height = h
	info.EXIF = exif
	info.ICC = icc
	info.HasGainMap = parts.hasGainMap
	return nil
}

// DecodeHDRImage is a convenience wrapper returning the linear-light
// reconstruction as an hdr.RGB image, 1.0 = SDR white.
func (j *JpegR) DecodeHDRImage(data []byte, maxDisplayBoost float32) (*hdr.RGB, error) {
	in := &CompressedImage{Data: data, Length: len(data)}
	if err := in.validIn(); err != nil {
		return nil, err
	}
	if maxDisplayBoost < 1.0 || math.IsNaN(float64(maxDisplayBoost)) || math.IsInf(float64(maxDisplayBoost), 0) {
		return nil, fmt.Errorf("display boost %g outside [1, max float]: %w", maxDisplayBoost, ErrInvalidArgument)
	}
	parts, err := parseContainer(data)
	if err != nil {
		return nil, err
	}
	sdrImg, err := j.codec().Decompress(data[parts.primary[0]:parts.primary[1]])
	if err != nil {
		return nil, fmt.Errorf("decompress primary: %v: %w", err, ErrCodecFailure)
	}
	meta := neutralMetadata()
	gainAt := func(x, y int) float32 { return 0 }
	if parts.hasGainMap {
		if parts.metadata == nil {
			return nil, fmt.Errorf("gain map present without metadata segment: %w", ErrInvalidContainer)
		}
		if meta, err = decodeMetadata(parts.metadata); err != nil {
			return nil, err
		}
		gmImg, err := j.codec().Decompress(data[parts.gainmap[0]:parts.gainmap[1]])
		if err != nil {
			return nil, fmt.Errorf("decompress gain map: %v: %w", err, ErrCodecFailure)
		}
		b := sdrImg.Bounds()
		full := upsampleGainMap(grayFromImage(gmImg), b.Dx(), b.Dy())
		gainAt = func(x, y int) float32 {
			return float32(full.Pix[y*full.Stride+x]) / 255.0
		}
	}
	weight := boostWeight(maxDisplayBoost, meta)

	b := sdrImg.Bounds()
	out := hdr.NewRGB(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			e := sampleLinear(sdrImg, b.Min.X+x, b.Min.Y+y)
			v := applyGain(e, gainAt(x, y), meta, weight)
			out.SetRGB(x, y, hdrcolor.RGB{R: float64(v.r), G: float64(v.g), B: float64(v.b)})
		}
	}
	return out, nil
}

// grayFromImage converts a decoded gain-map image to the plane type,
// collapsing color models other than gray.
func grayFromImage(img image.Image) *GrayImage {
	if g, ok := img.(*image.Gray); ok {
		return &GrayImage{
			Width:  g.Rect.Dx(),
			Height: g.Rect.Dy(),
			Data:   g.Pix,
			Stride: g.Stride,
		}
	}
	b := img.Bounds()
	out := &GrayImage{Width: b.Dx(), Height: b.Dy(), Data: make([]byte, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			out.Data[y*out.Width+x] = c.Y
		}
	}
	return out
}
