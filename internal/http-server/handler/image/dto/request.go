package dto

import "image-batch/internal/domain"

// BatchProcessRequest is the body of both batch endpoints.
type BatchProcessRequest struct {
	ImageIDs []string              `json:"imageIds"`
	Options  domain.ProcessOptions `json:"options"`
}

func (r BatchProcessRequest) ToDomain() *domain.BatchRequest {
	return &domain.BatchRequest{
		ImageIDs: r.ImageIDs,
		Options:  r.Options,
	}
}
