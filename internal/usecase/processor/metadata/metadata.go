// Package metadata reads and rewrites the metadata carried by JPEG, PNG and
// WebP containers without touching the encoded pixel data.
package metadata

import (
	"fmt"

	"image-batch/internal/domain"
)

// Info is the metadata found in a container.
type Info struct {
	EXIF        []byte
	ICCProfile  []byte
	Orientation int
	Tags        map[string]string
}

// Supports reports whether the container of format can be rewritten in place.
func Supports(format domain.ImageFormat) bool {
	switch format {
	case domain.FormatJPEG, domain.FormatPNG, domain.FormatWebP:
		return true
	}
	return false
}

// Read extracts metadata. Formats without container support return an
// empty Info.
func Read(data []byte, format domain.ImageFormat) (Info, error) {
	var (
		info Info
		err  error
	)
	switch format {
	case domain.FormatJPEG:
		info, err = readJPEG(data)
	case domain.FormatPNG:
		info, err = readPNG(data)
	case domain.FormatWebP:
		info, err = readWebP(data)
	case domain.FormatTIFF:
		// The container is itself a TIFF structure; only its tags are read.
		info.Orientation, info.Tags = parseEXIF(data)
	}
	if err != nil {
		return Info{Tags: map[string]string{}}, err
	}
	if info.Tags == nil {
		info.Tags = map[string]string{}
	}
	return info, nil
}

// Rewrite replaces every metadata segment of data with exactly the fields in
// b. width and height are only used when a WebP container must be extended.
func Rewrite(data []byte, format domain.ImageFormat, b Block, width, height int) ([]byte, error) {
	switch format {
	case domain.FormatJPEG:
		return rewriteJPEG(data, b)
	case domain.FormatPNG:
		return rewritePNG(data, b)
	case domain.FormatWebP:
		return rewriteWebP(data, b, width, height)
	}
	return nil, fmt.Errorf("%w: no metadata container for %s", domain.ErrUnsupportedFormat, format)
}
