package metadata

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Block is the complete metadata an output image carries. Anything not
// listed here is dropped when a container is rewritten.
type Block struct {
	Orientation int
	Copyright   string
	Artist      string
	Software    string
	DateTime    string
	ICCProfile  []byte
}

func (b Block) hasEXIF() bool {
	return b.Orientation > 0 || b.Copyright != "" || b.Artist != "" || b.Software != "" || b.DateTime != ""
}

// EXIF text fields are ASCII; other runes are replaced rather than rejected.
func sanitizeASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		if r > 0x7e || (r < 0x20 && r != '\n' && r != '\t') {
			return '?'
		}
		return r
	}, s)
}

type tagWalker struct {
	tags map[string]string
}

func (w tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Type == tiff.DTAscii {
		if v, err := tag.StringVal(); err == nil {
			w.tags[string(name)] = strings.TrimRight(v, "\x00")
			return nil
		}
	}
	w.tags[string(name)] = tag.String()
	return nil
}

// parseEXIF reads a raw TIFF / "Exif\0\0" block or a whole JPEG. Malformed
// metadata yields empty results rather than an error.
func parseEXIF(raw []byte) (orientation int, tags map[string]string) {
	tags = map[string]string{}
	if len(raw) == 0 {
		return 0, tags
	}

	// goexif may return a partially decoded value together with an error.
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil && x == nil {
		return 0, tags
	}
	_ = x.Walk(tagWalker{tags: tags})

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			orientation = v
		}
	}
	return orientation, tags
}
