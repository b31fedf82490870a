package jpegr

import (
	"testing"
)

// FuzzDecode feeds arbitrary byte streams to the container decoder.
// Run with: go test -fuzz=FuzzDecode -fuzztime=60s
func FuzzDecode(f *testing.F) {
	hdrImg := newP010(16, 16, 475, 512, 512)
	dest := &CompressedImage{Data: make([]byte, 64<<10)}
	if err := New().EncodeHDR(hdrImg, TransferHLG, dest, 80, nil); err == nil {
		f.Add(append([]byte(nil), dest.Bytes()...))
	}
	f.Add([]byte{0xFF, 0xD8, 0xFF, 0xD9}) // SOI + EOI
	f.Add([]byte{0xFF, 0xD8})
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add([]byte{0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		// Arbitrary input must never panic, only return errors.
		in := &CompressedImage{Data: data, Length: len(data)}
		out := &DestImage{Width: 16, Height: 16, Data: make([]byte, 16*16*8)}
		j := New()
		_ = j.Decode(in, out, 4.0, OutputHDRLinear, nil, nil)

		var info Info
		_ = j.GetInfo(in, &info)
		_, _, _, _ = Split(data)
	})
}

// FuzzEncode drives the raw-input encode shapes with arbitrary
// dimensions, pixel seeds and quality settings.
func FuzzEncode(f *testing.F) {
	f.Add(16, 16, uint16(475), byte(128), 80, int(TransferHLG))
	f.Add(8, 8, uint16(64), byte(0), 0, int(TransferPQ))
	f.Add(20, 16, uint16(940), byte(255), 100, int(TransferSRGB))
	f.Add(-4, 7681, uint16(0), byte(0), 101, 99)

	f.Fuzz(func(t *testing.T, w, h int, luma uint16, sdrLuma byte, quality, tf int) {
		if w < 0 || h < 0 || w > 128 || h > 128 {
			return
		}
		var hdrImg *P010Image
		var sdrImg *YUV420Image
		if w >= 2 && h >= 2 && w%2 == 0 && h%2 == 0 {
			hdrImg = newP010(w, h, luma, 512, 512)
			sdrImg = newYUV420(w, h, sdrLuma, 128, 128)
		} else {
			hdrImg = &P010Image{Width: w, Height: h, Y: make([]uint16, 16)}
			sdrImg = &YUV420Image{Width: w, Height: h, Y: make([]byte, 16)}
		}
		dest := &CompressedImage{Data: make([]byte, 256<<10)}
		j := New()
		if err := j.EncodeHDR(hdrImg, ColorTransfer(tf), dest, quality, nil); err == nil {
			// A successful encode must produce a parseable container.
			if _, err := parseContainer(dest.Bytes()); err != nil {
				t.Fatalf("encoded container does not parse: %v", err)
			}
		}
		dest.Length = 0
		_ = j.EncodeHDRSDR(hdrImg, sdrImg, ColorTransfer(tf), dest, quality, nil)
	})
}

// FuzzMetadata exercises the metadata segment parser directly.
func FuzzMetadata(f *testing.F) {
	if body, err := encodeMetadata(defaultMetadata(TransferHLG)); err == nil {
		f.Add(body)
	}
	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 0, 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := decodeMetadata(data)
		if err != nil {
			return
		}
		// A successfully parsed record must re-encode unless its values
		// fail validation.
		if m.validate() == nil {
			if _, err := encodeMetadata(m); err != nil {
				t.Fatalf("re-encode of parsed metadata: %v", err)
			}
		}
	})
}
