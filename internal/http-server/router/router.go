package router

import (
	"net/http"

	"image-batch/internal/http-server/handler/image"
	"image-batch/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ImageHandler *image.ImageHandler
	// AuthSecret signs bearer tokens; empty disables auth.
	AuthSecret  string
	Development bool
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(h.Development))
	r.Use(middleware.LoggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.ImageHandler.Health)

		r.Route("/images", func(r chi.Router) {
			r.Use(middleware.Auth(h.AuthSecret))

			r.Post("/batch-process", h.ImageHandler.BatchProcess)
			r.Post("/batch-jobs", h.ImageHandler.SubmitJob)
			r.Get("/batch-jobs/{id}", h.ImageHandler.GetJob)
		})
	})

	return r
}
