package jpegr

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// IsJPEGR performs a streaming check for an embedded gain map without
// loading the full image. It scans the primary header for the metadata
// segment and, failing that, reads on to the gain-map image header.
func IsJPEGR(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	found, err := findSOI(br)
	if err != nil || !found {
		return false, err
	}
	match, sawScan, err := scanHeaderForMetadata(br)
	if err != nil || match {
		return match, err
	}
	if sawScan {
		if err := skipScanToEOI(br); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
	}
	found, err = findSOI(br)
	if err != nil || !found {
		return false, err
	}
	match, _, err = scanHeaderForMetadata(br)
	return match, err
}

func findSOI(br *bufio.Reader) (bool, error) {
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if prev == markerStart && b == markerSOI {
			return true, nil
		}
		prev = b
	}
}

// scanHeaderForMetadata walks marker segments until scan data or EOI,
// reporting whether the metadata segment was seen.
func scanHeaderForMetadata(br *bufio.Reader) (match, sawScan bool, err error) {
	for {
		marker, err := readMarker(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, false, nil
			}
			return false, false, err
		}
		switch {
		case marker == markerEOI:
			return false, false, nil
		case marker == markerSOS:
			length, err := readU16(br)
			if err != nil || length < 2 {
				return false, false, fmt.Errorf("invalid SOS length: %w", ErrInvalidContainer)
			}
			if err := discardN(br, int(length-2)); err != nil {
				return false, false, err
			}
			return false, true, nil
		case marker == markerAPP2:
			ok, err := segmentHasPrefix(br, metadataSig)
			if err != nil {
				return false, false, err
			}
			if ok {
				return true, false, nil
			}
		case marker >= 0xD0 && marker <= 0xD7, marker == 0x01:
			// standalone markers carry no length
		default:
			length, err := readU16(br)
			if err != nil {
				return false, false, err
			}
			if length < 2 {
				return false, false, fmt.Errorf("invalid segment length: %w", ErrInvalidContainer)
			}
			if err := discardN(br, int(length-2)); err != nil {
				return false, false, err
			}
		}
	}
}

func readMarker(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != markerStart {
			continue
		}
		for {
			m, err := br.ReadByte()
			if err != nil {
				return 0, err
			}
			if m != markerStart {
				return m, nil
			}
		}
	}
}

func segmentHasPrefix(br *bufio.Reader, prefix []byte) (bool, error) {
	length, err := readU16(br)
	if err != nil {
		return false, err
	}
	if length < 2 {
		return false, fmt.Errorf("invalid segment length: %w", ErrInvalidContainer)
	}
	payloadLen := int(length - 2)
	readLen := payloadLen
	if readLen > len(prefix) {
		readLen = len(prefix)
	}
	buf := make([]byte, readLen)
	if _, err := io.ReadFull(br, buf); err != nil {
		return false, err
	}
	if err := discardN(br, payloadLen-readLen); err != nil {
		return false, err
	}
	return bytes.HasPrefix(buf, prefix) && readLen == len(prefix), nil
}

func readU16(br *bufio.Reader) (uint16, error) {
	hi, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func discardN(br *bufio.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, br, int64(n))
	return err
}

func skipScanToEOI(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		if b != markerStart {
			continue
		}
		m, err := br.ReadByte()
		if err != nil {
			return err
		}
		for m == markerStart {
			m, err = br.ReadByte()
			if err != nil {
				return err
			}
		}
		if m == 0x00 || (m >= 0xD0 && m <= 0xD7) {
			continue
		}
		if m == markerEOI {
			return nil
		}
	}
}
