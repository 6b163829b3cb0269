package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the HTTP layer and the batch report.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindSource     ErrorKind = "source"
	KindTransform  ErrorKind = "transform"
	KindSink       ErrorKind = "sink"
)

// Error carries the failure kind and the operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap returns nil for a nil err.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(kind, op, err)
}

func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidImageID       = errors.New("invalid image identifier")
	ErrWebsiteNotFound      = errors.New("website not found")
	ErrMissingCredentials   = errors.New("website has no wordpress credentials")
	ErrMediaNotFound        = errors.New("media not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrContentNotFound      = errors.New("content not found")
	ErrImageIndexOutOfRange = errors.New("image index out of range")
	ErrFetchFailed          = errors.New("image fetch failed")

	ErrDecode              = errors.New("failed to decode image")
	ErrEncode              = errors.New("failed to encode image")
	ErrUnsupportedFormat   = errors.New("unsupported image format")
	ErrMissingScrambleType = errors.New("scramble type is required for scramble action")
	ErrUnknownScrambleType = errors.New("unknown scramble type")

	ErrUploadFailed    = errors.New("wordpress upload failed")
	ErrImageChanged    = errors.New("image changed since it was resolved")
	ErrVersionConflict = errors.New("content version conflict")
	ErrPersistFailed   = errors.New("failed to persist content")

	ErrJobNotFound = errors.New("batch job not found")
)
