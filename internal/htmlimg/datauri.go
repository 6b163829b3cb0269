package htmlimg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotDataURI = errors.New("not a data uri")

const dataScheme = "data:"

// IsDataURI reports whether src is an inline data: URI.
func IsDataURI(src string) bool {
	return len(src) >= len(dataScheme) && strings.EqualFold(src[:len(dataScheme)], dataScheme)
}

// DecodeDataURI returns the media type and payload of a data: URI.
func DecodeDataURI(src string) (string, []byte, error) {
	if !IsDataURI(src) {
		return "", nil, ErrNotDataURI
	}

	header, payload, ok := strings.Cut(src[len(dataScheme):], ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data uri: missing payload separator")
	}

	params := strings.Split(header, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	if mime == "" {
		mime = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("failed to unescape data uri: %w", err)
		}
		return mime, []byte(data), nil
	}

	payload = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode data uri payload: %w", err)
		}
	}
	return mime, data, nil
}

// EncodeDataURI builds a base64 data: URI.
func EncodeDataURI(mime string, data []byte) string {
	return dataScheme + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
