package jpegr

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Muxer. The container is the primary JPEG with the metadata and MPF
// segments inserted in its header, followed by the gain-map JPEG with
// its own copy of the metadata segment. A reader that stops at the
// primary EOI sees a standards-compliant SDR JPEG.

// maxSegmentPayload is the largest APP payload a 16-bit segment length
// can carry (two length bytes included in the length field).
const maxSegmentPayload = 0xFFFF - 2

func writeAppSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(markerStart)
	out.WriteByte(marker)
	length := uint16(len(payload) + 2)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
}

// segmentSpan is the on-wire size of one APP segment.
func segmentSpan(payload []byte) int {
	if len(payload) == 0 {
		return 0
	}
	return 4 + len(payload)
}

// iccChunks splits a raw ICC profile into APP2 payloads with the
// standard chunk header.
func iccChunks(profile []byte) [][]byte {
	if len(profile) == 0 {
		return nil
	}
	chunkData := maxSegmentPayload - len(iccSig) - 2
	total := (len(profile) + chunkData - 1) / chunkData
	out := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunkData
		end := start + chunkData
		if end > len(profile) {
			end = len(profile)
		}
		payload := make([]byte, 0, len(iccSig)+2+end-start)
		payload = append(payload, iccSig...)
		payload = append(payload, byte(i+1), byte(total))
		payload = append(payload, profile[start:end]...)
		out = append(out, payload)
	}
	return out
}

// assembleContainer builds the composite byte stream. exif is a raw
// APP1 payload and icc a raw profile; both are optional.
func assembleContainer(primaryJPEG, gainmapJPEG []byte, meta *Metadata, exif, icc []byte) ([]byte, error) {
	if len(primaryJPEG) < 4 || len(gainmapJPEG) < 4 {
		return nil, fmt.Errorf("component image too short: %w", ErrInvalidArgument)
	}
	primary, err := stripAppSegments(primaryJPEG)
	if err != nil {
		return nil, err
	}
	gainmap, err := stripAppSegments(gainmapJPEG)
	if err != nil {
		return nil, err
	}
	metaPayload, err := buildMetadataPayload(meta)
	if err != nil {
		return nil, err
	}
	if len(metaPayload) > maxSegmentPayload || len(exif) > maxSegmentPayload {
		return nil, fmt.Errorf("segment payload exceeds marker capacity: %w", ErrInvalidArgument)
	}
	chunks := iccChunks(icc)

	// The layout is deterministic, so MPF sizes and offsets are computed
	// up front instead of patched afterwards.
	headerLen := 2 + segmentSpan(exif) + segmentSpan(metaPayload)
	mpfSegStart := headerLen
	headerLen += 4 + mpfPayloadSize()
	for _, c := range chunks {
		headerLen += segmentSpan(c)
	}
	primarySize := headerLen + len(primary) - 2
	secondarySize := 2 + segmentSpan(metaPayload) + len(gainmap) - 2
	tiffHeader := mpfSegStart + 4 + len(mpfSig)
	mpf := buildMPF(primarySize, secondarySize, primarySize-tiffHeader)

	var out bytes.Buffer
	out.Grow(primarySize + secondarySize)
	out.WriteByte(markerStart)
	out.WriteByte(markerSOI)
	if len(exif) > 0 {
		writeAppSegment(&out, markerAPP1, exif)
	}
	writeAppSegment(&out, markerAPP2, metaPayload)
	writeAppSegment(&out, markerAPP2, mpf)
	for _, c := range chunks {
		writeAppSegment(&out, markerAPP2, c)
	}
	out.Write(primary[2:])

	out.WriteByte(markerStart)
	out.WriteByte(markerSOI)
	writeAppSegment(&out, markerAPP2, metaPayload)
	out.Write(gainmap[2:])

	return out.Bytes(), nil
}

// stripAppSegments removes APP0-APP15 and COM segments so the muxer
// fully controls the header it writes.
func stripAppSegments(jpegData []byte) ([]byte, error) {
	if len(jpegData) < 4 || jpegData[0] != markerStart || jpegData[1] != markerSOI {
		return nil, fmt.Errorf("missing SOI: %w", ErrInvalidContainer)
	}
	var out bytes.Buffer
	out.WriteByte(markerStart)
	out.WriteByte(markerSOI)
	pos := 2
	for pos+3 < len(jpegData) {
		if jpegData[pos] != markerStart {
			out.WriteByte(jpegData[pos])
			pos++
			continue
		}
		for pos < len(jpegData) && jpegData[pos] == markerStart {
			pos++
		}
		if pos >= len(jpegData) {
			break
		}
		marker := jpegData[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			out.WriteByte(markerStart)
			out.WriteByte(marker)
			out.Write(jpegData[pos:])
			return out.Bytes(), nil
		}
		if marker >= 0xD0 && marker <= 0xD7 {
			out.WriteByte(markerStart)
			out.WriteByte(marker)
			continue
		}
		if pos+1 >= len(jpegData) {
			return nil, fmt.Errorf("truncated marker segment: %w", ErrInvalidContainer)
		}
		segLen := int(binary.BigEndian.Uint16(jpegData[pos:]))
		if segLen < 2 || pos+segLen > len(jpegData) {
			return nil, fmt.Errorf("marker length out of bounds: %w", ErrInvalidContainer)
		}
		if marker == markerCOM || (marker >= markerAPP0 && marker <= 0xEF) {
			pos += segLen
			continue
		}
		out.WriteByte(markerStart)
		out.WriteByte(marker)
		out.Write(jpegData[pos : pos+segLen])
		pos += segLen
	}
	return out.Bytes(), nil
}
