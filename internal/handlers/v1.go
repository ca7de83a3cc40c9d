package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jonno85/video-uploader/internal/adapter"
	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/jonno85/video-uploader/internal/service"
)

const defaultListLimit = 50

type PathRequest struct {
	Path string `json:"path"`
}

type UploadRequest struct {
	Path string `json:"path"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadManager is the part of the upload service exposed over HTTP.
type UploadManager interface {
	Intake(ctx context.Context, src string) (domain.UploadRecord, error)
	Resubmit(ctx context.Context, id adapter.RecordID) (domain.UploadRecord, error)
	Get(ctx context.Context, id adapter.RecordID) (domain.UploadRecord, error)
	List(ctx context.Context, queue string, limit int64) ([]domain.UploadRecord, error)
}

type V1Handler struct {
	Uploads     UploadManager
	PathWatcher service.PathWatcherAdminAction
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func decodePath(r *http.Request) (string, error) {
	var request PathRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return "", err
	}
	if request.Path == "" {
		return "", errors.New("path is required")
	}
	return request.Path, nil
}

func (h *V1Handler) AddPathToWatch(w http.ResponseWriter, r *http.Request) {
	path, err := decodePath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.PathWatcher.AddAndWatchPath(r.Context(), path); err != nil {
		if errors.Is(err, domain.ErrPathAlreadyWatched) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Path added to watchlist"))
}

func (h *V1Handler) RemovePathFromWatch(w http.ResponseWriter, r *http.Request) {
	path, err := decodePath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.PathWatcher.DeleteWatchPath(r.Context(), path); err != nil {
		if errors.Is(err, domain.ErrPathNotWatched) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *V1Handler) ListWatchedPaths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.PathWatcher.WatchedPaths())
}

func (h *V1Handler) SubmitUpload(w http.ResponseWriter, r *http.Request) {
	path, err := decodePath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.Uploads.Intake(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrFileUnreadable) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, record)
}

func (h *V1Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	record, err := h.Uploads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *V1Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("queue")
	if name == "" {
		name = "completed"
	}
	queue, ok := adapter.QueueKey(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown queue "+strconv.Quote(name))
		return
	}

	limit := int64(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.Uploads.List(r.Context(), queue, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *V1Handler) ResubmitUpload(w http.ResponseWriter, r *http.Request) {
	record, err := h.Uploads.Resubmit(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRecordNotFailed):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, record)
	}
}
