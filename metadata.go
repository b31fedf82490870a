package jpegr

import (
	"encoding/binary"
	"fmt"
	"math"
)

// metadataSig prefixes the APP2 payload that carries gain-map metadata.
var metadataSig = []byte("urn:jpegr:gainmap\x00")

// Metadata describes how the gain map maps the SDR base to HDR.
type Metadata struct {
	// Version is the semantic version of the writing encoder.
	Version string

	// MaxContentBoost is the multiplier applied where the gain map is
	// at full scale. Must be >= MinContentBoost.
	MaxContentBoost float32
	// MinContentBoost is the multiplier at zero gain, typically 1.0.
	MinContentBoost float32

	// Transfer-curve parameters reserved for future use; the defaults
	// leave the curve linear in the log domain.
	Gamma          float32
	OffsetSDR      float32
	OffsetHDR      float32
	HDRCapacityMin float32
	HDRCapacityMax float32

	// Reserved holds unknown trailing bytes of a parsed segment so a
	// rewrite preserves them verbatim.
	Reserved []byte
}

func (m *Metadata) validate() error {
	if m == nil {
		return fmt.Errorf("metadata missing: %w", ErrInvalidArgument)
	}
	if m.MinContentBoost <= 0 || m.MaxContentBoost < m.MinContentBoost {
		return fmt.Errorf("metadata boost bounds [%g, %g]: %w",
			m.MinContentBoost, m.MaxContentBoost, ErrInvalidArgument)
	}
	if m.Gamma <= 0 || math.IsNaN(float64(m.Gamma)) {
		return fmt.Errorf("metadata gamma %g: %w", m.Gamma, ErrInvalidArgument)
	}
	if m.OffsetSDR < 0 || m.OffsetHDR < 0 {
		return fmt.Errorf("metadata offsets [%g, %g]: %w",
			m.OffsetSDR, m.OffsetHDR, ErrInvalidArgument)
	}
	if m.HDRCapacityMax < m.HDRCapacityMin {
		return fmt.Errorf("metadata capacity bounds [%g, %g]: %w",
			m.HDRCapacityMin, m.HDRCapacityMax, ErrInvalidArgument)
	}
	if len(m.Version) > 255 {
		return fmt.Errorf("metadata version too long: %w", ErrInvalidArgument)
	}
	return nil
}

// defaultMetadata builds the record the encoder embeds for a transfer
// function, deriving the boost ceiling from its peak white.
func defaultMetadata(tf ColorTransfer) *Metadata {
	maxBoost := peakNits(tf) / sdrWhiteNits
	return &Metadata{
		Version:         jpegrVersion,
		MaxContentBoost: maxBoost,
		MinContentBoost: 1.0,
		Gamma:           1.0,
		OffsetSDR:       gainOffsetSDR,
		OffsetHDR:       gainOffsetHDR,
		HDRCapacityMin:  1.0,
		HDRCapacityMax:  maxBoost,
	}
}

const (
	metadataMinVersion    = 0
	metadataWriterVersion = 0

	// version words + flags + version length byte + 7 float fields
	metadataFixedSize = 2 + 2 + 1 + 1 + 7*4
)

// encodeMetadata serializes a record into the segment body that follows
// metadataSig. Floats are stored as big-endian IEEE 754 bit patterns so
// the round trip is bit-exact.
func encodeMetadata(m *Metadata) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, metadataFixedSize+len(m.Version)+len(m.Reserved))
	writeU16 := func(v uint16) {
		out = append(out, byte(v>>8), byte(v))
	}
	writeF32 := func(v float32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
		out = append(out, b[:]...)
	}

	writeU16(metadataMinVersion)
	writeU16(metadataWriterVersion)
	out = append(out, 0) // flags, reserved
	out = append(out, byte(len(m.Version)))
	out = append(out, m.Version...)
	writeF32(m.MaxContentBoost)
	writeF32(m.MinContentBoost)
	writeF32(m.Gamma)
	writeF32(m.OffsetSDR)
	writeF32(m.OffsetHDR)
	writeF32(m.HDRCapacityMin)
	writeF32(m.HDRCapacityMax)
	out = append(out, m.Reserved...)
	return out, nil
}

// decodeMetadata parses a segment body. A body shorter than the fixed
// layout is a structural failure, never a default fill.
func decodeMetadata(in []byte) (*Metadata, error) {
	if len(in) < metadataFixedSize {
		return nil, fmt.Errorf("metadata segment %d bytes, need %d: %w",
			len(in), metadataFixedSize, ErrInvalidContainer)
	}
	minVer := binary.BigEndian.Uint16(in)
	if minVer > metadataMinVersion {
		return nil, fmt.Errorf("metadata min_version %d: %w", minVer, ErrUnsupportedConfig)
	}
	verLen := int(in[5])
	if len(in) < metadataFixedSize+verLen {
		return nil, fmt.Errorf("metadata version string truncated: %w", ErrInvalidContainer)
	}
	m := &Metadata{Version: string(in[6 : 6+verLen])}
	pos := 6 + verLen
	readF32 := func() float32 {
		v := math.Float32frombits(binary.BigEndian.Uint32(in[pos:]))
		pos += 4
		return v
	}
	m.MaxContentBoost = readF32()
	m.MinContentBoost = readF32()
	m.Gamma = readF32()
	m.OffsetSDR = readF32()
	m.OffsetHDR = readF32()
	m.HDRCapacityMin = readF32()
	m.HDRCapacityMax = readF32()
	if pos < len(in) {
		m.Reserved = append([]byte(nil), in[pos:]...)
	}
	return m, nil
}

// buildMetadataPayload frames the encoded record as an APP2 payload.
func buildMetadataPayload(m *Metadata) ([]byte, error) {
	body, err := encodeMetadata(m)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, len(metadataSig)+len(body))
	payload = append(payload, metadataSig...)
	payload = append(payload, body...)
	return payload, nil
}
