// Package uploader sends a local video file to the upload endpoint as a multipart/form-data POST.
package uploader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/jonno85/video-uploader/internal/metrics"
	"github.com/jonno85/video-uploader/internal/service/utils"
)

// maxDrainBytes bounds how much of an unparsed response body is read before closing it.
const maxDrainBytes = 64 << 10

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// VideoUploader is the contract the queue workers depend on.
type VideoUploader interface {
	Upload(ctx context.Context, path string) domain.UploadOutcome
}

type Client struct {
	endpoint    string
	httpClient  HTTPDoer
	dispatcher  Dispatcher
	newBoundary func() string
	timeout     time.Duration
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithTimeout bounds each request. It applies to the configured *http.Client whatever the option order.
// A custom HTTPDoer that is not an *http.Client is left as is.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithDispatcher sets where Submit delivers its notifications. Defaults to Inline.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(c *Client) {
		c.dispatcher = dispatcher
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:    endpoint,
		httpClient:  http.DefaultClient,
		dispatcher:  Inline,
		newBoundary: newBoundary,
	}
	for _, opt := range opts {
		opt(c)
	}
	if hc, ok := c.httpClient.(*http.Client); ok && c.timeout > 0 {
		withTimeout := *hc
		withTimeout.Timeout = c.timeout
		c.httpClient = &withTimeout
	}
	return c
}

// Submit uploads path off the calling goroutine and delivers exactly one outcome to notify through the client's dispatcher.
func (c *Client) Submit(ctx context.Context, path string, notify func(domain.UploadOutcome)) {
	go func() {
		outcome := c.Upload(ctx, path)
		c.dispatcher.Dispatch(func() { notify(outcome) })
	}()
}

// Upload makes a single attempt and never returns an error: every failure is folded into the outcome.
func (c *Client) Upload(ctx context.Context, path string) domain.UploadOutcome {
	req := domain.NewUploadRequest(path, c.endpoint)
	startTime := time.Now()

	outcome := c.upload(ctx, req)

	elapsed := time.Since(startTime)
	metrics.UploadsTotal.WithLabelValues(outcome.Kind.String()).Inc()
	metrics.UploadDuration.WithLabelValues(outcome.Kind.String()).Observe(elapsed.Seconds())
	if outcome.Succeeded() {
		metrics.UploadBytes.Observe(float64(outcome.BytesSent))
		slog.Info("Video uploaded", "file", req.FileName, "bytes", outcome.BytesSent, "duration", elapsed, "endpoint", req.Endpoint)
	} else {
		slog.Error("Video upload failed", "file", req.FilePath, "kind", outcome.Kind.String(), "reason", outcome.Reason)
	}
	return outcome
}

func (c *Client) upload(ctx context.Context, req domain.UploadRequest) domain.UploadOutcome {
	file, size, err := openVideo(req.FilePath)
	if err != nil {
		return domain.LocalFailure(err)
	}
	defer file.Close()

	hasher := utils.NewHasher()
	body, err := newMultipartBody(req, io.TeeReader(file, hasher), size, c.newBoundary())
	if err != nil {
		return domain.LocalFailure(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, body)
	if err != nil {
		return domain.TransportFailure(err)
	}
	httpReq.ContentLength = body.length
	httpReq.Header.Set("Content-Type", body.contentType)

	slog.Debug("Uploading video", "file", req.FileName, "size", size, "endpoint", req.Endpoint)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.TransportFailure(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode != http.StatusOK {
		return domain.ServerFailure(resp.StatusCode)
	}
	return domain.Success(resp.StatusCode, hasher.Len(), hasher.Sum())
}

// openVideo opens path for reading, rejecting anything that is not a regular file.
func openVideo(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, 0, fmt.Errorf("%s is not a regular file", path)
	}
	return file, info.Size(), nil
}
