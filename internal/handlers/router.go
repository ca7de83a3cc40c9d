package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonno85/video-uploader/internal/middleware"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRouter(v1Handler *V1Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", HealthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/path/add", v1Handler.AddPathToWatch)
		r.Delete("/path/remove", v1Handler.RemovePathFromWatch)
		r.Get("/path", v1Handler.ListWatchedPaths)

		r.Post("/uploads", v1Handler.SubmitUpload)
		r.Get("/uploads", v1Handler.ListUploads)
		r.Get("/uploads/{id}", v1Handler.GetUpload)
		r.Post("/uploads/{id}/resubmit", v1Handler.ResubmitUpload)
	})
	return r
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
