package jpegr

import "fmt"

// Split extracts the primary JPEG, the gain-map JPEG and the metadata
// record from a JPEG-R container. The returned slices are copies.
func Split(data []byte) (primaryJPEG, gainmapJPEG []byte, meta *Metadata, err error) {
	parts, err := parseContainer(data)
	if err != nil {
		return nil, nil, nil, err
	}
	if !parts.hasGainMap {
		return nil, nil, nil, fmt.Errorf("no gain map image in container: %w", ErrInvalidContainer)
	}
	if parts.metadata == nil {
		return nil, nil, nil, fmt.Errorf("no gain map metadata in container: %w", ErrInvalidContainer)
	}
	meta, err = decodeMetadata(parts.metadata)
	if err != nil {
		return nil, nil, nil, err
	}
	primaryJPEG = append([]byte(nil), data[parts.primary[0]:parts.primary[1]]...)
	gainmapJPEG = append([]byte(nil), data[parts.gainmap[0]:parts.gainmap[1]]...)
	return primaryJPEG, gainmapJPEG, meta, nil
}

// Join assembles a JPEG-R container from component JPEG images and
// metadata, carrying the primary's EXIF and ICC segments over.
func Join(primaryJPEG, gainmapJPEG []byte, meta *Metadata) ([]byte, error) {
	if err := meta.validate(); err != nil {
		return nil, err
	}
	exif, icc, err := extractExifAndICC(primaryJPEG)
	if err != nil {
		return nil, err
	}
	return assembleContainer(primaryJPEG, gainmapJPEG, meta, exif, icc)
}
