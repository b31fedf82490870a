package jpegr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
	markerCOM   = 0xFE
)

var (
	exifSig = []byte{'E', 'x', 'i', 'f', 0, 0}
	iccSig  = []byte{'I', 'C', 'C', '_', 'P', 'R', 'O', 'F', 'I', 'L', 'E', 0}
)

// containerParts is the demuxer output: byte ranges of the embedded
// images plus the raw metadata segment body, if present.
type containerParts struct {
	primary    [2]int
	gainmap    [2]int
	hasGainMap bool
	metadata   []byte
}

// parseContainer walks the marker structure of a JPEG-R byte stream.
// A plain single-image JPEG is a valid outcome with hasGainMap false.
func parseContainer(data []byte) (*containerParts, error) {
	ranges, err := scanImageRanges(data)
	if err != nil {
		return nil, err
	}
	p := &containerParts{primary: ranges[0]}
	if len(ranges) >= 2 {
		p.gainmap = ranges[1]
		p.hasGainMap = true
	}

	// The metadata segment lives in the gain-map header; the copy in
	// the primary header is the fallback.
	if p.hasGainMap {
		_, app2, err := appSegments(data[p.gainmap[0]:p.gainmap[1]])
		if err != nil {
			return nil, err
		}
		if seg := findPrefixed(app2, metadataSig); seg != nil {
			p.metadata = seg[len(metadataSig):]
			return p, nil
		}
	}
	_, app2, err := appSegments(data[p.primary[0]:p.primary[1]])
	if err != nil {
		return nil, err
	}
	if seg := findPrefixed(app2, metadataSig); seg != nil {
		p.metadata = seg[len(metadataSig):]
	}
	return p, nil
}

// scanImageRanges locates the JPEG images in the stream, preferring the
// MPF index and falling back to a scan for a nested SOI after the
// primary EOI.
func scanImageRanges(data []byte) ([][2]int, error) {
	if len(data) < 4 || data[0] != markerStart || data[1] != markerSOI {
		return nil, fmt.Errorf("missing SOI: %w", ErrInvalidContainer)
	}
	if ranges, ok := rangesFromMPF(data); ok {
		return ranges, nil
	}
	var ranges [][2]int
	i := 0
	for i+1 < len(data) {
		if data[i] == markerStart && data[i+1] == markerSOI {
			end, err := findJPEGEnd(data, i)
			if err != nil {
				if len(ranges) > 0 {
					// Trailing garbage after a complete primary image
					// is tolerated; a broken primary is not.
					break
				}
				return nil, err
			}
			ranges = append(ranges, [2]int{i, end})
			i = end
			continue
		}
		i++
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no JPEG image found: %w", ErrInvalidContainer)
	}
	return ranges, nil
}

func rangesFromMPF(data []byte) ([][2]int, bool) {
	found := false
	var idx mpfIndex
	var tiffAbs int
	err := walkSegments(data, func(marker byte, payload []byte, segStart int) bool {
		if marker != markerAPP2 || !bytes.HasPrefix(payload, mpfSig) {
			return true
		}
		parsed, perr := parseMPF(payload)
		if perr != nil {
			return false
		}
		idx = parsed
		tiffAbs = segStart + len(mpfSig)
		found = true
		return false
	})
	if err != nil || !found {
		return nil, false
	}
	secondaryStart := tiffAbs + idx.secondaryOffset
	secondaryEnd := secondaryStart + idx.secondarySize
	if idx.primarySize <= 0 || idx.primarySize > len(data) ||
		secondaryStart < 0 || secondaryEnd > len(data) {
		return nil, false
	}
	if secondaryStart+1 >= len(data) ||
		data[secondaryStart] != markerStart || data[secondaryStart+1] != markerSOI {
		return nil, false
	}
	return [][2]int{{0, idx.primarySize}, {secondaryStart, secondaryEnd}}, true
}

// walkSegments visits each non-scan marker segment of the first image in
// data. The callback receives the marker, its payload and the absolute
// payload offset; returning false stops the walk.
func walkSegments(data []byte, fn func(marker byte, payload []byte, segStart int) bool) error {
	if len(data) < 4 || data[0] != markerStart || data[1] != markerSOI {
		return fmt.Errorf("missing SOI: %w", ErrInvalidContainer)
	}
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerStart {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == markerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			return nil
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 {
			continue
		}
		if pos+1 >= len(data) {
			return fmt.Errorf("truncated marker segment: %w", ErrInvalidContainer)
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return fmt.Errorf("marker length out of bounds: %w", ErrInvalidContainer)
		}
		if !fn(marker, data[pos+2:pos+segLen], pos+2) {
			return nil
		}
		pos += segLen
	}
	return nil
}

// findJPEGEnd returns the offset just past the EOI of the image whose
// SOI is at start.
func findJPEGEnd(data []byte, start int) (int, error) {
	if start+1 >= len(data) || data[start] != markerStart || data[start+1] != markerSOI {
		return 0, fmt.Errorf("not a JPEG SOI: %w", ErrInvalidContainer)
	}
	pos := start + 2
	inScan := false
	for pos+1 < len(data) {
		if !inScan {
			if data[pos] != markerStart {
				pos++
				continue
			}
			for pos < len(data) && data[pos] == markerStart {
				pos++
			}
			if pos >= len(data) {
				break
			}
			marker := data[pos]
			pos++
			switch {
			case marker == markerEOI:
				return pos, nil
			case marker == markerSOS:
				if pos+1 >= len(data) {
					return 0, fmt.Errorf("truncated SOS: %w", ErrInvalidContainer)
				}
				pos += int(binary.BigEndian.Uint16(data[pos:]))
				inScan = true
				continue
			case marker == markerSOI, marker >= 0xD0 && marker <= 0xD7, marker == 0x01:
				continue
			}
			if pos+1 >= len(data) {
				return 0, fmt.Errorf("truncated marker segment: %w", ErrInvalidContainer)
			}
			segLen := int(binary.BigEndian.Uint16(data[pos:]))
			if segLen < 2 {
				return 0, fmt.Errorf("marker length %d: %w", segLen, ErrInvalidContainer)
			}
			pos += segLen
			continue
		}

		// Entropy-coded data: only stuffed bytes, restart markers and
		// EOI are expected.
		if data[pos] != markerStart {
			pos++
			continue
		}
		if pos+1 >= len(data) {
			return 0, fmt.Errorf("truncated scan data: %w", ErrInvalidContainer)
		}
		next := data[pos+1]
		switch {
		case next == 0x00, next >= 0xD0 && next <= 0xD7:
			pos += 2
		case next == markerEOI:
			return pos + 2, nil
		default:
			pos += 2
			if pos+1 >= len(data) {
				return 0, fmt.Errorf("truncated marker in scan: %w", ErrInvalidContainer)
			}
			segLen := int(binary.BigEndian.Uint16(data[pos:]))
			if segLen < 2 {
				return 0, fmt.Errorf("marker length in scan: %w", ErrInvalidContainer)
			}
			pos += segLen
		}
	}
	return 0, fmt.Errorf("no EOI found: %w", ErrInvalidContainer)
}

// appSegments collects copies of APP1 and APP2 payloads of one image.
func appSegments(jpegData []byte) (app1, app2 [][]byte, err error) {
	err = walkSegments(jpegData, func(marker byte, payload []byte, _ int) bool {
		switch marker {
		case markerAPP1:
			app1 = append(app1, append([]byte(nil), payload...))
		case markerAPP2:
			app2 = append(app2, append([]byte(nil), payload...))
		}
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return app1, app2, nil
}

func findPrefixed(segs [][]byte, prefix []byte) []byte {
	for _, seg := range segs {
		if bytes.HasPrefix(seg, prefix) {
			return seg
		}
	}
	return nil
}

// extractExifAndICC returns the raw EXIF APP1 payload and the assembled
// ICC profile of a JPEG. Both are opaque to the codec.
func extractExifAndICC(jpegData []byte) (exif, icc []byte, err error) {
	app1, app2, err := appSegments(jpegData)
	if err != nil {
		return nil, nil, err
	}
	exif = findPrefixed(app1, exifSig)

	type chunk struct {
		seq  int
		data []byte
	}
	var chunks []chunk
	for _, seg := range app2 {
		// APP2 payload: "ICC_PROFILE\0" + seq + total + profile bytes.
		if bytes.HasPrefix(seg, iccSig) && len(seg) > len(iccSig)+2 {
			chunks = append(chunks, chunk{seq: int(seg[len(iccSig)]), data: seg[len(iccSig)+2:]})
		}
	}
	if len(chunks) == 0 {
		return exif, nil, nil
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
	for _, c := range chunks {
		icc = append(icc, c.data...)
	}
	return exif, icc, nil
}

// jpegDimensions reads the frame size from the SOF segment.
func jpegDimensions(jpegData []byte) (w, h int, err error) {
	found := false
	werr := walkSegments(jpegData, func(marker byte, payload []byte, _ int) bool {
		if marker < 0xC0 || marker > 0xCF || marker == 0xC4 || marker == 0xC8 || marker == 0xCC {
			return true
		}
		if len(payload) < 5 {
			return true
		}
		h = int(binary.BigEndian.Uint16(payload[1:3]))
		w = int(binary.BigEndian.Uint16(payload[3:5]))
		found = true
		return false
	})
	if werr != nil {
		return 0, 0, werr
	}
	if !found {
		return 0, 0, fmt.Errorf("no SOF segment: %w", ErrInvalidContainer)
	}
	return w, h, nil
}
