// Package htmlimg locates <img> tags in stored HTML and rewrites their src
// attribute without reformatting the rest of the document.
package htmlimg

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

var (
	ErrNoSrc      = errors.New("img tag has no src attribute")
	ErrTagChanged = errors.New("img tag no longer matches document")
)

// Tag is one <img> element. Start and End are byte offsets of the raw tag in
// the scanned document.
type Tag struct {
	Start int
	End   int
	Raw   string
	Src   string
}

// Find returns every <img> tag of body in document order, including tags
// without a src attribute.
func Find(body string) []Tag {
	var (
		tags   []Tag
		offset int
	)

	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or malformed input.
			return tags
		}

		// Raw is only valid until the next call and TagName lowercases in place.
		raw := string(z.Raw())
		start := offset
		offset += len(raw)

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "img" {
			continue
		}

		tag := Tag{Start: start, End: offset, Raw: raw}
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) == "src" {
				tag.Src = string(val)
				break
			}
		}
		tags = append(tags, tag)
	}
}

// Nth returns the index-th <img> that has a src attribute.
func Nth(body string, index int) (Tag, bool) {
	if index < 0 {
		return Tag{}, false
	}
	n := 0
	for _, tag := range Find(body) {
		if tag.Src == "" {
			continue
		}
		if n == index {
			return tag, true
		}
		n++
	}
	return Tag{}, false
}

// ReplaceSrc returns body with the src attribute of tag set to src. Every
// other byte of the document is preserved.
func ReplaceSrc(body string, tag Tag, src string) (string, error) {
	if tag.Start < 0 || tag.End > len(body) || tag.Start > tag.End || body[tag.Start:tag.End] != tag.Raw {
		return "", ErrTagChanged
	}

	valStart, valEnd, ok := srcValueSpan(tag.Raw)
	if !ok {
		return "", ErrNoSrc
	}

	var b strings.Builder
	b.Grow(len(body) - (valEnd - valStart) + len(src) + 2)
	b.WriteString(body[:tag.Start])
	b.WriteString(tag.Raw[:valStart])
	b.WriteByte('"')
	b.WriteString(html.EscapeString(src))
	b.WriteByte('"')
	b.WriteString(tag.Raw[valEnd:])
	b.WriteString(body[tag.End:])
	return b.String(), nil
}

// srcValueSpan finds the src attribute value in a raw start tag, quotes
// included.
func srcValueSpan(raw string) (start, end int, ok bool) {
	i := 1
	// Tag name.
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}

	for i < len(raw) {
		for i < len(raw) && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			return 0, 0, false
		}

		nameStart := i
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' && raw[i] != '/' {
			i++
		}
		name := strings.ToLower(raw[nameStart:i])

		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) || raw[i] != '=' {
			continue
		}
		i++
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}

		valStart := i
		switch {
		case i < len(raw) && (raw[i] == '"' || raw[i] == '\''):
			q := raw[i]
			j := strings.IndexByte(raw[i+1:], q)
			if j < 0 {
				return 0, 0, false
			}
			i += j + 2
		default:
			for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' {
				i++
			}
		}

		if name == "src" {
			return valStart, i, true
		}
	}
	return 0, 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

