package image

import "errors"

var (
	ErrInvalidBody  = errors.New("invalid JSON body")
	ErrBodyTooLarge = errors.New("request body too large")
)
