package jpegr

import (
	"encoding/binary"
	"fmt"
)

// Multi-Picture Format (CIPA DC-007) index. The container writes a
// two-entry MPF APP2 segment so readers can locate the gain-map image
// without scanning for a nested SOI.

const (
	mpfPictures  = 2
	mpfTagCount  = 3
	mpfTagSize   = 12
	mpfEntrySize = 16

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfVersionTag = 0xB000
	mpfCountTag   = 0xB001
	mpfEntryTag   = 0xB002

	mpfAttrTypePrimary = 0x030000
)

var (
	mpfSig     = []byte{'M', 'P', 'F', 0}
	mpfVersion = []byte{'0', '1', '0', '0'}
)

func mpfPayloadSize() int {
	// sig + TIFF header + tag count + tags + attribute IFD offset + entries
	return len(mpfSig) + 8 + 2 + mpfTagCount*mpfTagSize + 4 + mpfPictures*mpfEntrySize
}

// buildMPF writes the index payload. secondaryOffset is relative to the
// start of the TIFF header (the byte after mpfSig).
func buildMPF(primarySize, secondarySize, secondaryOffset int) []byte {
	buf := make([]byte, 0, mpfPayloadSize())
	u16 := func(v uint16) {
		buf = append(buf, byte(v>>8), byte(v))
	}
	u32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}

	buf = append(buf, mpfSig...)
	buf = append(buf, 0x4D, 0x4D, 0x00, 0x2A) // big-endian TIFF magic
	u32(8)                                    // index IFD offset

	u16(mpfTagCount)

	u16(mpfVersionTag)
	u16(mpfTypeUndefined)
	u32(uint32(len(mpfVersion)))
	buf = append(buf, mpfVersion...)

	u16(mpfCountTag)
	u16(mpfTypeLong)
	u32(1)
	u32(mpfPictures)

	u16(mpfEntryTag)
	u16(mpfTypeUndefined)
	u32(mpfEntrySize * mpfPictures)
	u32(uint32(8 + 2 + mpfTagCount*mpfTagSize + 4)) // entries follow the IFD

	u32(0) // no attribute IFD

	// Primary entry: offset 0 by convention.
	u32(mpfAttrTypePrimary)
	u32(uint32(primarySize))
	u32(0)
	u16(0)
	u16(0)

	// Gain-map entry.
	u32(0)
	u32(uint32(secondarySize))
	u32(uint32(secondaryOffset))
	u16(0)
	u16(0)

	return buf
}

type mpfIndex struct {
	primarySize     int
	secondarySize   int
	secondaryOffset int
}

// parseMPF reads the two-picture index out of an APP2 payload.
func parseMPF(payload []byte) (mpfIndex, error) {
	var idx mpfIndex
	if len(payload) < len(mpfSig)+8 {
		return idx, fmt.Errorf("mpf payload truncated: %w", ErrInvalidContainer)
	}
	tiff := payload[len(mpfSig):]
	var order binary.ByteOrder
	switch {
	case tiff[0] == 0x4D && tiff[1] == 0x4D:
		order = binary.BigEndian
	case tiff[0] == 0x49 && tiff[1] == 0x49:
		order = binary.LittleEndian
	default:
		return idx, fmt.Errorf("mpf endianness marker: %w", ErrInvalidContainer)
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return idx, fmt.Errorf("mpf tiff magic: %w", ErrInvalidContainer)
	}
	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < 0 || ifd+2 > len(tiff) {
		return idx, fmt.Errorf("mpf ifd offset: %w", ErrInvalidContainer)
	}
	tags := int(order.Uint16(tiff[ifd : ifd+2]))
	pos := ifd + 2
	entries := -1
	for i := 0; i < tags; i++ {
		if pos+mpfTagSize > len(tiff) {
			return idx, fmt.Errorf("mpf ifd truncated: %w", ErrInvalidContainer)
		}
		tag := order.Uint16(tiff[pos : pos+2])
		typ := order.Uint16(tiff[pos+2 : pos+4])
		count := order.Uint32(tiff[pos+4 : pos+8])
		value := order.Uint32(tiff[pos+8 : pos+12])
		if tag == mpfEntryTag && typ == mpfTypeUndefined && count >= mpfEntrySize {
			entries = int(value)
			break
		}
		pos += mpfTagSize
	}
	if entries < 0 || entries+mpfEntrySize*mpfPictures > len(tiff) {
		return idx, fmt.Errorf("mpf entry table: %w", ErrInvalidContainer)
	}
	for i := 0; i < mpfPictures; i++ {
		attr := order.Uint32(tiff[entries : entries+4])
		size := int(order.Uint32(tiff[entries+4 : entries+8]))
		offset := int(order.Uint32(tiff[entries+8 : entries+12]))
		if attr&mpfAttrTypePrimary != 0 {
			idx.primarySize = size
		} else {
			idx.secondarySize = size
			idx.secondaryOffset = offset
		}
		entries += mpfEntrySize
	}
	if idx.primarySize == 0 || idx.secondarySize == 0 {
		return idx, fmt.Errorf("mpf picture sizes missing: %w", ErrInvalidContainer)
	}
	return idx, nil
}
