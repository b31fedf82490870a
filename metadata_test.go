package jpegr

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestMetadataRoundTripBitExact(t *testing.T) {
	in := &Metadata{
		Version:         jpegrVersion,
		MaxContentBoost: 4.9283,
		MinContentBoost: 1.000001,
		Gamma:           1.0,
		OffsetSDR:       0.015625,
		OffsetHDR:       0.0152587890625,
		HDRCapacityMin:  1.0,
		HDRCapacityMax:  4.9283,
	}
	payload, err := encodeMetadata(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeMetadata(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.Version != in.Version {
		t.Fatalf("version %q != %q", out.Version, in.Version)
	}
	fields := []struct {
		name string
		a, b float32
	}{
		{"MaxContentBoost", in.MaxContentBoost, out.MaxContentBoost},
		{"MinContentBoost", in.MinContentBoost, out.MinContentBoost},
		{"Gamma", in.Gamma, out.Gamma},
		{"OffsetSDR", in.OffsetSDR, out.OffsetSDR},
		{"OffsetHDR", in.OffsetHDR, out.OffsetHDR},
		{"HDRCapacityMin", in.HDRCapacityMin, out.HDRCapacityMin},
		{"HDRCapacityMax", in.HDRCapacityMax, out.HDRCapacityMax},
	}
	for _, f := range fields {
		if math.Float32bits(f.a) != math.Float32bits(f.b) {
			t.Fatalf("%s not bit-exact: %v vs %v", f.name, f.a, f.b)
		}
	}
}

func TestMetadataReservedPreserved(t *testing.T) {
	in := defaultMetadata(TransferHLG)
	in.Reserved = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	payload, err := encodeMetadata(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeMetadata(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(out.Reserved, in.Reserved) {
		t.Fatalf("reserved bytes %x, want %x", out.Reserved, in.Reserved)
	}
}

func TestMetadataDecodeTruncated(t *testing.T) {
	payload, err := encodeMetadata(defaultMetadata(TransferPQ))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, n := range []int{0, 1, 5, len(payload) - 1} {
		if _, err := decodeMetadata(payload[:n]); !errors.Is(err, ErrInvalidContainer) {
			t.Fatalf("truncated to %d bytes: err = %v", n, err)
		}
	}
}

func TestMetadataDecodeFutureVersion(t *testing.T) {
	payload, err := encodeMetadata(defaultMetadata(TransferHLG))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload[0] = 0
	payload[1] = 1 // minimum reader version bumped
	if _, err := decodeMetadata(payload); !errors.Is(err, ErrUnsupportedConfig) {
		t.Fatalf("future version: err = %v", err)
	}
}

func TestMetadataValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Metadata)
		ok   bool
	}{
		{name: "default hlg", mod: func(*Metadata) {}, ok: true},
		{name: "max below min", mod: func(m *Metadata) { m.MaxContentBoost = 0.5 }, ok: false},
		{name: "nan gamma", mod: func(m *Metadata) { m.Gamma = float32(math.NaN()) }, ok: false},
		{name: "negative offset", mod: func(m *Metadata) { m.OffsetSDR = -1 }, ok: false},
		{name: "capacity inverted", mod: func(m *Metadata) { m.HDRCapacityMax = 0.5 }, ok: false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m := defaultMetadata(TransferHLG)
			c.mod(m)
			err := m.validate()
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("err = %v, want invalid argument", err)
			}
		})
	}
}

func TestDefaultMetadataBoost(t *testing.T) {
	hlg := defaultMetadata(TransferHLG)
	if want := float32(hlgMaxNits) / sdrWhiteNits; absf(hlg.MaxContentBoost-want) > 1e-5 {
		t.Fatalf("hlg max boost = %v, want %v", hlg.MaxContentBoost, want)
	}
	pq := defaultMetadata(TransferPQ)
	if want := float32(pqMaxNits) / sdrWhiteNits; absf(pq.MaxContentBoost-want) > 1e-3 {
		t.Fatalf("pq max boost = %v, want %v", pq.MaxContentBoost, want)
	}
	if hlg.MinContentBoost != 1 || hlg.HDRCapacityMin != 1 {
		t.Fatalf("hlg minimums: %v, %v", hlg.MinContentBoost, hlg.HDRCapacityMin)
	}
}
