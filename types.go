package jpegr

import "fmt"

// ColorGamut identifies a supported color gamut.
type ColorGamut int

const (
	GamutUnspecified ColorGamut = iota
	GamutBT709
	GamutDisplayP3
	GamutBT2100
)

func (g ColorGamut) valid() bool {
	return g >= GamutUnspecified && g <= GamutBT2100
}

// ColorTransfer identifies a supported transfer function.
type ColorTransfer int

const (
	TransferUnspecified ColorTransfer = iota
	TransferLinear
	TransferHLG
	TransferPQ
	TransferSRGB
)

func (t ColorTransfer) valid() bool {
	return t > TransferUnspecified && t <= TransferSRGB
}

// OutputFormat selects the decoded pixel representation.
type OutputFormat int

const (
	OutputUnspecified OutputFormat = iota
	// OutputHDRLinear writes RGBA half floats, 1.0 = SDR white.
	OutputHDRLinear
	// OutputHDRGamma writes HLG-encoded RGBA 1010102.
	OutputHDRGamma
	// OutputSDR writes sRGB RGBA 8888.
	OutputSDR
)

func (f OutputFormat) valid() bool {
	return f > OutputUnspecified && f <= OutputSDR
}

// bytesPerPixel returns the destination stride unit for the format.
func (f OutputFormat) bytesPerPixel() int {
	if f == OutputHDRLinear {
		return 8
	}
	return 4
}

// P010Image is a caller-owned 10-bit semi-planar YUV 4:2:0 image.
// Samples occupy the low 10 bits of each uint16, limited video range.
type P010Image struct {
	Width  int
	Height int
	Gamut  ColorGamut

	// Y holds luma rows. When UV is nil the interleaved CbCr plane
	// follows the luma plane in the same slice at offset YStride*Height.
	Y []uint16
	// YStride is samples per luma row; 0 means tightly packed (Width).
	YStride int

	// UV holds interleaved CbCr pairs at half vertical resolution.
	UV []uint16
	// UVStride is samples per chroma row; 0 means tightly packed.
	UVStride int
}

func (p *P010Image) yStride() int {
	if p.YStride == 0 {
		return p.Width
	}
	return p.YStride
}

func (p *P010Image) uvStride() int {
	if p.UVStride == 0 {
		if p.UV == nil {
			return p.yStride()
		}
		return p.Width
	}
	return p.UVStride
}

// lumaAt returns the 10-bit luma sample at (x, y).
func (p *P010Image) lumaAt(x, y int) uint16 {
	return p.Y[y*p.yStride()+x] & 0x3FF
}

// chromaAt returns the 10-bit Cb/Cr pair covering (x, y).
func (p *P010Image) chromaAt(x, y int) (cb, cr uint16) {
	row := y / 2
	col := (x / 2) * 2
	plane := p.UV
	if plane == nil {
		plane = p.Y[p.yStride()*p.Height:]
	}
	i := row*p.uvStride() + col
	return plane[i] & 0x3FF, plane[i+1] & 0x3FF
}

func (p *P010Image) validate() error {
	if p == nil || p.Y == nil {
		return fmt.Errorf("p010 image missing: %w", ErrInvalidArgument)
	}
	if err := validateDims(p.Width, p.Height); err != nil {
		return err
	}
	if !p.Gamut.valid() {
		return fmt.Errorf("p010 gamut out of range: %w", ErrInvalidArgument)
	}
	if p.YStride != 0 && p.YStride < p.Width {
		return fmt.Errorf("p010 luma stride %d < width %d: %w", p.YStride, p.Width, ErrInvalidArgument)
	}
	if p.UVStride != 0 && p.UVStride < p.Width {
		return fmt.Errorf("p010 chroma stride %d < width %d: %w", p.UVStride, p.Width, ErrInvalidArgument)
	}
	need := p.yStride() * p.Height
	if p.UV == nil {
		need += p.uvStride() * (p.Height / 2)
		if len(p.Y) < need {
			return fmt.Errorf("p010 contiguous plane too short: %w", ErrInvalidArgument)
		}
		return nil
	}
	if len(p.Y) < need {
		return fmt.Errorf("p010 luma plane too short: %w", ErrInvalidArgument)
	}
	if len(p.UV) < p.uvStride()*(p.Height/2) {
		return fmt.Errorf("p010 chroma plane too short: %w", ErrInvalidArgument)
	}
	return nil
}

// YUV420Image is a caller-owned 8-bit planar YUV 4:2:0 image (I420).
type YUV420Image struct {
	Width  int
	Height int
	Gamut  ColorGamut

	// Y holds luma rows. When U and V are nil both chroma planes follow
	// the luma plane in the same slice.
	Y []byte
	// YStride is bytes per luma row; 0 means tightly packed (Width).
	YStride int

	U []byte
	V []byte
	// UVStride is bytes per chroma row; 0 means tightly packed (Width/2).
	UVStride int
}

func (p *YUV420Image) yStride() int {
	if p.YStride == 0 {
		return p.Width
	}
	return p.YStride
}

func (p *YUV420Image) uvStride() int {
	if p.UVStride == 0 {
		return p.Width / 2
	}
	return p.UVStride
}

func (p *YUV420Image) planes() (yp, up, vp []byte) {
	yp = p.Y
	if p.U != nil {
		return yp, p.U, p.V
	}
	ySize := p.yStride() * p.Height
	cSize := p.uvStride() * (p.Height / 2)
	return yp, p.Y[ySize : ySize+cSize], p.Y[ySize+cSize:]
}

// yuvAt returns the full-range YCbCr triple covering (x, y).
func (p *YUV420Image) yuvAt(x, y int) (yy, cb, cr byte) {
	yp, up, vp := p.planes()
	ci := (y/2)*p.uvStride() + x/2
	return yp[y*p.yStride()+x], up[ci], vp[ci]
}

func (p *YUV420Image) validate() error {
	if p == nil || p.Y == nil {
		return fmt.Errorf("yuv420 image missing: %w", ErrInvalidArgument)
	}
	if err := validateDims(p.Width, p.Height); err != nil {
		return err
	}
	if !p.Gamut.valid() {
		return fmt.Errorf("yuv420 gamut out of range: %w", ErrInvalidArgument)
	}
	if p.YStride != 0 && p.YStride < p.Width {
		return fmt.Errorf("yuv420 luma stride %d < width %d: %w", p.YStride, p.Width, ErrInvalidArgument)
	}
	if p.UVStride != 0 && p.UVStride < p.Width/2 {
		return fmt.Errorf("yuv420 chroma stride %d < %d: %w", p.UVStride, p.Width/2, ErrInvalidArgument)
	}
	if (p.U == nil) != (p.V == nil) {
		return fmt.Errorf("yuv420 chroma planes must both be set or both nil: %w", ErrInvalidArgument)
	}
	cSize := p.uvStride() * (p.Height / 2)
	if p.U == nil {
		if len(p.Y) < p.yStride()*p.Height+2*cSize {
			return fmt.Errorf("yuv420 contiguous plane too short: %w", ErrInvalidArgument)
		}
		return nil
	}
	if len(p.Y) < p.yStride()*p.Height {
		return fmt.Errorf("yuv420 luma plane too short: %w", ErrInvalidArgument)
	}
	if len(p.U) < cSize || len(p.V) < cSize {
		return fmt.Errorf("yuv420 chroma plane too short: %w", ErrInvalidArgument)
	}
	return nil
}

// GrayImage is a single-channel 8-bit image, used for gain maps.
type GrayImage struct {
	Width  int
	Height int
	Data   []byte
	// Stride is bytes per row; 0 means tightly packed (Width).
	Stride int
}

func (p *GrayImage) stride() int {
	if p.Stride == 0 {
		return p.Width
	}
	return p.Stride
}

func (p *GrayImage) at(x, y int) byte {
	return p.Data[y*p.stride()+x]
}

func (p *GrayImage) validate() error {
	if p == nil || p.Data == nil {
		return fmt.Errorf("gray image missing: %w", ErrInvalidArgument)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("gray dimensions %dx%d: %w", p.Width, p.Height, ErrInvalidArgument)
	}
	if p.Stride != 0 && p.Stride < p.Width {
		return fmt.Errorf("gray stride %d < width %d: %w", p.Stride, p.Width, ErrInvalidArgument)
	}
	if len(p.Data) < p.stride()*p.Height {
		return fmt.Errorf("gray plane too short: %w", ErrInvalidArgument)
	}
	return nil
}

// DestImage receives decoded pixels. Data must hold
// Width*Height*bytesPerPixel bytes of the requested output format.
type DestImage struct {
	Width  int
	Height int
	Gamut  ColorGamut
	Data   []byte
	// Stride is pixels per row; 0 means tightly packed (Width).
	Stride int
}

func (d *DestImage) stride() int {
	if d.Stride == 0 {
		return d.Width
	}
	return d.Stride
}

func (d *DestImage) validate(f OutputFormat) error {
	if d == nil || d.Data == nil {
		return fmt.Errorf("destination image missing: %w", ErrInvalidArgument)
	}
	if d.Stride != 0 && d.Stride < d.Width {
		return fmt.Errorf("destination stride %d < width %d: %w", d.Stride, d.Width, ErrInvalidArgument)
	}
	need := d.stride() * d.Height * f.bytesPerPixel()
	if len(d.Data) < need {
		return fmt.Errorf("destination needs %d bytes, have %d: %w", need, len(d.Data), ErrInvalidArgument)
	}
	return nil
}

// CompressedImage is a caller-owned byte buffer for compressed data.
// len(Data) is the capacity; Length tracks the valid bytes and is only
// advanced on success.
type CompressedImage struct {
	Data   []byte
	Length int
	Gamut  ColorGamut
}

// Bytes returns the valid portion of the buffer.
func (c *CompressedImage) Bytes() []byte {
	return c.Data[:c.Length]
}

// setBytes stores b, failing without a partial write if b exceeds the
// buffer capacity.
func (c *CompressedImage) setBytes(b []byte) error {
	if len(b) > len(c.Data) {
		return fmt.Errorf("output %d bytes exceeds capacity %d: %w", len(b), len(c.Data), ErrBufferTooSmall)
	}
	copy(c.Data, b)
	c.Length = len(b)
	return nil
}

func (c *CompressedImage) validIn() error {
	if c == nil || c.Data == nil {
		return fmt.Errorf("compressed input missing: %w", ErrInvalidArgument)
	}
	if c.Length < 0 || c.Length > len(c.Data) {
		return fmt.Errorf("compressed length %d exceeds capacity %d: %w", c.Length, len(c.Data), ErrInvalidArgument)
	}
	if c.Length == 0 {
		return fmt.Errorf("compressed input empty: %w", ErrInvalidArgument)
	}
	return nil
}

func (c *CompressedImage) validOut() error {
	if c == nil || c.Data == nil {
		return fmt.Errorf("compressed destination missing: %w", ErrInvalidArgument)
	}
	return nil
}

// Info describes a JPEG-R container without decoding pixel data.
type Info struct {
	Width  int
	Height int
	// ICC is the assembled ICC profile of the primary image, nil if absent.
	ICC []byte
	// EXIF is the raw EXIF APP1 payload of the container, nil if absent.
	EXIF []byte
	// HasGainMap reports whether a gain-map image is embedded.
	HasGainMap bool
}

func validateDims(w, h int) error {
	if w < MinDimension || h < MinDimension || w > MaxWidth || h > MaxHeight {
		return fmt.Errorf("dimensions %dx%d out of supported range: %w", w, h, ErrInvalidArgument)
	}
	if w%2 != 0 || h%2 != 0 {
		return fmt.Errorf("dimensions %dx%d must be even: %w", w, h, ErrInvalidArgument)
	}
	return nil
}
