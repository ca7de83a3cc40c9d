package adapter_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonno85/video-uploader/internal/adapter"
	"github.com/jonno85/video-uploader/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archiveBucket = "archive"

type storedObject struct {
	hash string
	body []byte
}

// s3Stub answers the handful of S3 calls the archiver makes, path-style.
type s3Stub struct {
	mu           sync.Mutex
	bucketExists bool
	bucketsMade  int
	objects      map[string]storedObject
	statStatus   int
	putFailures  int
	puts         int
}

func newS3Stub(t *testing.T) (*s3Stub, *adapter.S3ClientImpl) {
	t.Helper()
	stub := &s3Stub{bucketExists: true, objects: map[string]storedObject{}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := adapter.NewMinioClient(config.MinioConfig{
		Endpoint:      strings.TrimPrefix(srv.URL, "http://"),
		AccessKey:     "access",
		SecretKey:     "secret",
		ArchiveBucket: archiveBucket,
		Region:        "us-east-1",
	})
	require.NoError(t, err)
	return stub, client
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != archiveBucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !s.bucketExists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		io.Copy(io.Discard, r.Body)
		s.bucketsMade++
		s.bucketExists = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if s.statStatus != 0 {
			w.WriteHeader(s.statStatus)
			return
		}
		obj, ok := s.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
		w.Header().Set("X-Amz-Meta-Hash", obj.hash)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.puts++
		if s.putFailures > 0 {
			s.putFailures--
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
			return
		}
		s.objects[key] = storedObject{hash: r.Header.Get("X-Amz-Meta-Hash"), body: body}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *s3Stub) update(fn func(s *s3Stub)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *s3Stub) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *s3Stub) object(key string) (storedObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// readSeeker hides ReadAt so the client consumes the reader directly.
type readSeeker struct {
	io.ReadSeeker
}

func TestS3Client_PutNewObject(t *testing.T) {
	stub, client := newS3Stub(t)
	content := []byte("fake mp4 payload")

	err := client.PutObjectWithIdempotency(context.Background(), "rec-1/clip.mp4", bytes.NewReader(content), "abc123", int64(len(content)), map[string]string{"source": "/inbox/clip.mp4"})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.putCount())
	obj, ok := stub.object("rec-1/clip.mp4")
	require.True(t, ok)
	assert.Equal(t, "abc123", obj.hash)
	assert.True(t, bytes.Contains(obj.body, content))
}

func TestS3Client_SameHashIsNoop(t *testing.T) {
	stub, client := newS3Stub(t)
	stub.update(func(s *s3Stub) {
		s.objects["rec-1/clip.mp4"] = storedObject{hash: "abc123", body: []byte("old")}
	})

	err := client.PutObjectWithIdempotency(context.Background(), "rec-1/clip.mp4", strings.NewReader("new"), "abc123", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stub.putCount())
}

func TestS3Client_DifferentHashIsRejected(t *testing.T) {
	stub, client := newS3Stub(t)
	stub.update(func(s *s3Stub) {
		s.objects["rec-1/clip.mp4"] = storedObject{hash: "abc123", body: []byte("old")}
	})

	err := client.PutObjectWithIdempotency(context.Background(), "rec-1/clip.mp4", strings.NewReader("new"), "def456", 3, nil)
	assert.ErrorIs(t, err, adapter.ErrHashMismatch)
	assert.Equal(t, 0, stub.putCount())
	obj, _ := stub.object("rec-1/clip.mp4")
	assert.Equal(t, "abc123", obj.hash)
}

func TestS3Client_StatErrorIsReturned(t *testing.T) {
	stub, client := newS3Stub(t)
	stub.update(func(s *s3Stub) { s.statStatus = http.StatusForbidden })

	err := client.PutObjectWithIdempotency(context.Background(), "rec-1/clip.mp4", strings.NewReader("data"), "abc123", 4, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, adapter.ErrHashMismatch)
	assert.Equal(t, 0, stub.putCount())
}

func TestS3Client_PutRewindsAndRetries(t *testing.T) {
	stub, client := newS3Stub(t)
	stub.update(func(s *s3Stub) { s.putFailures = 1 })
	content := []byte("payload that must be resent whole")

	reader := readSeeker{bytes.NewReader(content)}
	err := client.PutObjectWithIdempotency(context.Background(), "rec-2/clip.mp4", reader, "abc123", int64(len(content)), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stub.putCount())
	obj, ok := stub.object("rec-2/clip.mp4")
	require.True(t, ok)
	assert.True(t, bytes.Contains(obj.body, content), "second attempt resends the full content")
}

func TestS3Client_PutGivesUpAfterMaxAttempts(t *testing.T) {
	stub, client := newS3Stub(t)
	stub.update(func(s *s3Stub) { s.putFailures = 100 })

	err := client.PutObjectWithIdempotency(context.Background(), "rec-3/clip.mp4", strings.NewReader("data"), "abc123", 4, nil)
	require.Error(t, err)
	assert.Equal(t, 5, stub.putCount())
	_, ok := stub.object("rec-3/clip.mp4")
	assert.False(t, ok)
}

func TestS3Client_EnsureBucket(t *testing.T) {
	stub, client := newS3Stub(t)

	require.NoError(t, client.EnsureBucket(context.Background()))
	var made int
	stub.update(func(s *s3Stub) { made = s.bucketsMade })
	assert.Equal(t, 0, made)

	stub.update(func(s *s3Stub) { s.bucketExists = false })
	require.NoError(t, client.EnsureBucket(context.Background()))
	stub.update(func(s *s3Stub) { made = s.bucketsMade })
	assert.Equal(t, 1, made)
}
