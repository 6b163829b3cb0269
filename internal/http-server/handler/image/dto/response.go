package dto

import (
	"time"

	"image-batch/internal/domain"
)

type BatchProcessResponse struct {
	*domain.BatchResult
	ProcessingTime string `json:"processingTime"`
}

type JobAcceptedResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}
