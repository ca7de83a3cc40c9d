package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonno85/video-uploader/internal/adapter"
	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/jonno85/video-uploader/internal/handlers"
	"github.com/jonno85/video-uploader/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (http.Handler, *service.MockUploadService, *service.MockPathWatcherAdmin) {
	uploads := service.NewMockUploadService()
	watcher := service.NewMockPathWatcherAdmin()
	router := handlers.NewRouter(&handlers.V1Handler{Uploads: uploads, PathWatcher: watcher})
	return router, uploads, watcher
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := newTestRouter()

	w := serve(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handlers.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestAddPathToWatch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, _, watcher := newTestRouter()
		watcher.On("AddAndWatchPath", mock.Anything, "/inbox").Return(nil).Once()

		w := serve(router, http.MethodPost, "/v1/path/add", `{"path":"/inbox"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		watcher.AssertExpectations(t)
	})

	t.Run("already watched", func(t *testing.T) {
		router, _, watcher := newTestRouter()
		watcher.On("AddAndWatchPath", mock.Anything, "/inbox").Return(domain.ErrPathAlreadyWatched).Once()

		w := serve(router, http.MethodPost, "/v1/path/add", `{"path":"/inbox"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing path", func(t *testing.T) {
		router, _, watcher := newTestRouter()

		w := serve(router, http.MethodPost, "/v1/path/add", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		watcher.AssertNotCalled(t, "AddAndWatchPath", mock.Anything, mock.Anything)
	})

	t.Run("wrong method", func(t *testing.T) {
		router, _, _ := newTestRouter()

		w := serve(router, http.MethodGet, "/v1/path/add", "")

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRemovePathFromWatch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, _, watcher := newTestRouter()
		watcher.On("DeleteWatchPath", mock.Anything, "/inbox").Return(nil).Once()

		w := serve(router, http.MethodDelete, "/v1/path/remove", `{"path":"/inbox"}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("not watched", func(t *testing.T) {
		router, _, watcher := newTestRouter()
		watcher.On("DeleteWatchPath", mock.Anything, "/inbox").Return(domain.ErrPathNotWatched).Once()

		w := serve(router, http.MethodDelete, "/v1/path/remove", `{"path":"/inbox"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListWatchedPaths(t *testing.T) {
	router, _, watcher := newTestRouter()
	watcher.On("WatchedPaths").Return([]string{"/a", "/b"}).Once()

	w := serve(router, http.MethodGet, "/v1/path", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var paths []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&paths))
	assert.Equal(t, []string{"/a", "/b"}, paths)
}

func TestSubmitUpload(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		record := domain.UploadRecord{ID: "rec-1", FileName: "clip.mp4", Status: domain.StatusPending}
		uploads.On("Intake", mock.Anything, "/videos/clip.mp4").Return(record, nil).Once()

		w := serve(router, http.MethodPost, "/v1/uploads", `{"path":"/videos/clip.mp4"}`)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var resp domain.UploadRecord
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "rec-1", resp.ID)
		assert.Equal(t, domain.StatusPending, resp.Status)
	})

	t.Run("unreadable file", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		uploads.On("Intake", mock.Anything, "/videos/missing.mp4").
			Return(domain.UploadRecord{}, domain.ErrFileUnreadable).Once()

		w := serve(router, http.MethodPost, "/v1/uploads", `{"path":"/videos/missing.mp4"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("queue error", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		uploads.On("Intake", mock.Anything, "/videos/clip.mp4").
			Return(domain.UploadRecord{}, errors.New("redis down")).Once()

		w := serve(router, http.MethodPost, "/v1/uploads", `{"path":"/videos/clip.mp4"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetUpload(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		uploads.On("Get", mock.Anything, "rec-1").
			Return(domain.UploadRecord{ID: "rec-1", Status: domain.StatusSucceeded}, nil).Once()

		w := serve(router, http.MethodGet, "/v1/uploads/rec-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("not found", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		uploads.On("Get", mock.Anything, "missing").Return(domain.UploadRecord{}, domain.ErrRecordNotFound).Once()

		w := serve(router, http.MethodGet, "/v1/uploads/missing", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListUploads(t *testing.T) {
	t.Run("failed queue with limit", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		uploads.On("List", mock.Anything, adapter.QueueFailed, int64(5)).
			Return([]domain.UploadRecord{{ID: "rec-1", Status: domain.StatusFailed}}, nil).Once()

		w := serve(router, http.MethodGet, "/v1/uploads?queue=failed&limit=5", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var records []domain.UploadRecord
		require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
		assert.Len(t, records, 1)
	})

	t.Run("defaults to completed", func(t *testing.T) {
		router, uploads, _ := newTestRouter()
		uploads.On("List", mock.Anything, adapter.QueueCompleted, int64(50)).Return([]domain.UploadRecord{}, nil).Once()

		w := serve(router, http.MethodGet, "/v1/uploads", "")

		assert.Equal(t, http.StatusOK, w.Code)
		uploads.AssertExpectations(t)
	})

	t.Run("unknown queue", func(t *testing.T) {
		router, _, _ := newTestRouter()

		w := serve(router, http.MethodGet, "/v1/uploads?queue=bogus", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		router, _, _ := newTestRouter()

		w := serve(router, http.MethodGet, "/v1/uploads?limit=-1", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestResubmitUpload(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"not found", domain.ErrRecordNotFound, http.StatusNotFound},
		{"not failed", domain.ErrRecordNotFailed, http.StatusConflict},
		{"store error", errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, uploads, _ := newTestRouter()
			uploads.On("Resubmit", mock.Anything, "rec-1").Return(domain.UploadRecord{ID: "rec-1"}, tt.err).Once()

			w := serve(router, http.MethodPost, "/v1/uploads/rec-1/resubmit", "")

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
