package metadata

import (
	"fmt"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// exifBuilder returns an IFD0 builder holding exactly the EXIF fields of b,
// or nil when the block carries none.
func exifBuilder(b Block) (*exif.IfdBuilder, error) {
	if !b.hasEXIF() {
		return nil, nil
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to load ifd mapping: %w", err)
	}
	ib := exif.NewIfdBuilder(im, exif.NewTagIndex(), exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)

	if b.Orientation > 0 {
		if err := ib.AddStandardWithName("Orientation", []uint16{uint16(b.Orientation)}); err != nil {
			return nil, fmt.Errorf("failed to set orientation: %w", err)
		}
	}

	// Ascending tag order.
	fields := []struct {
		name  string
		value string
	}{
		{"Software", b.Software},
		{"DateTime", b.DateTime},
		{"Artist", b.Artist},
		{"Copyright", b.Copyright},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := ib.AddStandardWithName(f.name, sanitizeASCII(f.value)); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", f.name, err)
		}
	}
	return ib, nil
}

// buildEXIF serialises the block as a bare TIFF structure, the payload of a
// WebP EXIF chunk. Returns nil when the block carries no EXIF fields.
func buildEXIF(b Block) ([]byte, error) {
	ib, err := exifBuilder(b)
	if err != nil || ib == nil {
		return nil, err
	}

	raw, err := exif.NewIfdByteEncoder().EncodeToExif(ib)
	if err != nil {
		return nil, fmt.Errorf("failed to encode exif: %w", err)
	}
	return raw, nil
}
