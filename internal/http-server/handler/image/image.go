package image

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"image-batch/internal/domain"
	"image-batch/internal/http-server/handler/image/dto"
	"image-batch/internal/http-server/middleware"
	"image-batch/internal/usecase/batch"

	"github.com/go-chi/chi/v5"
	"github.com/wb-go/wbf/zlog"
)

const defaultMaxBodyBytes = 1 << 20

type ImageHandler struct {
	usecase      batchUsecase
	logger       *zlog.Zerolog
	maxBodyBytes int64
	development  bool
}

// NewImageHandler builds the batch handler. development adds error details
// and stack traces to 500 responses.
func NewImageHandler(usecase batchUsecase, logger *zlog.Zerolog, maxBodyBytes int64, development bool) *ImageHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &ImageHandler{
		usecase:      usecase,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		development:  development,
	}
}

func (h *ImageHandler) BatchProcess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := h.decodeBatch(w, r)
	if err != nil {
		h.handleDecodeError(w, err)
		return
	}

	userID := middleware.UserID(r.Context())
	result, err := h.usecase.Process(r.Context(), req.ToDomain(), userID)
	if err != nil {
		h.handleBatchError(w, err)
		return
	}

	h.logger.Info().
		Str("user_id", userID).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Batch request completed")

	h.respondJSON(w, http.StatusOK, dto.BatchProcessResponse{
		BatchResult:    result,
		ProcessingTime: fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
	})
}

func (h *ImageHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeBatch(w, r)
	if err != nil {
		h.handleDecodeError(w, err)
		return
	}

	job, err := h.usecase.Submit(r.Context(), req.ToDomain(), middleware.UserID(r.Context()))
	if err != nil {
		h.handleBatchError(w, err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, dto.JobAcceptedResponse{
		ID:        job.ID,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
	})
}

func (h *ImageHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Job ID is required", nil)
		return
	}

	job, err := h.usecase.GetJob(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		h.handleBatchError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *ImageHandler) decodeBatch(w http.ResponseWriter, r *http.Request) (*dto.BatchProcessRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req dto.BatchProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return &req, nil
}

func (h *ImageHandler) handleDecodeError(w http.ResponseWriter, err error) {
	h.logger.Warn().Err(err).Msg("Failed to decode batch request")
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		h.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
	default:
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
	}
}

func (h *ImageHandler) handleBatchError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsKind(err, domain.KindValidation), errors.Is(err, domain.ErrValidation):
		h.logger.Warn().Err(err).Msg("Batch request rejected")
		h.respondError(w, http.StatusBadRequest, validationMessage(err), nil)
	case errors.Is(err, domain.ErrJobNotFound):
		h.respondError(w, http.StatusNotFound, "Batch job not found", nil)
	case errors.Is(err, batch.ErrJobsDisabled), errors.Is(err, batch.ErrQueueFailed):
		h.logger.Error().Err(err).Msg("Batch jobs unavailable")
		h.respondError(w, http.StatusServiceUnavailable, "Batch jobs are unavailable", nil)
	default:
		h.logger.Error().Err(err).Msg("Batch request failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to process batch", err)
	}
}

// validationMessage strips the operation prefix from a validation error.
func validationMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Err.Error()
	}
	return err.Error()
}

func (h *ImageHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ImageHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ImageHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil && h.development {
		response.Details = err.Error()
		response.Stack = string(debug.Stack())
	}

	h.respondJSON(w, status, response)
}
