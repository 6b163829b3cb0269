package image

import (
	"errors"

	"image-batch/internal/domain"
)

var (
	ErrWebsiteNotFound = domain.ErrWebsiteNotFound
	ErrContentNotFound = domain.ErrContentNotFound
	ErrJobNotFound     = domain.ErrJobNotFound
	ErrVersionConflict = domain.ErrVersionConflict

	ErrStorageError      = errors.New("storage error")
	ErrStorageValidation = errors.New("storage validation failed")
)
