package domain

import (
	"fmt"
	"path/filepath"
)

// VideoMimeType is the content type declared for every uploaded part.
const VideoMimeType = "video/mp4"

// FormFieldName is the multipart form field carrying the video.
const FormFieldName = "video"

type UploadRequest struct {
	FilePath string
	FileName string
	MimeType string
	Endpoint string
}

// NewUploadRequest builds the transient request for a single upload attempt.
func NewUploadRequest(path, endpoint string) UploadRequest {
	return UploadRequest{
		FilePath: path,
		FileName: filepath.Base(path),
		MimeType: VideoMimeType,
		Endpoint: endpoint,
	}
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeLocalFailure
	OutcomeTransportFailure
	OutcomeServerFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeLocalFailure:
		return "local_failure"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeServerFailure:
		return "server_failure"
	default:
		return "unknown"
	}
}

// UploadOutcome is the terminal result of one upload attempt. Reason is empty on success.
type UploadOutcome struct {
	Kind       OutcomeKind
	Reason     string
	StatusCode int
	BytesSent  int64
	Checksum   string
}

func (o UploadOutcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

func (o UploadOutcome) String() string {
	if o.Succeeded() {
		return "success"
	}
	return fmt.Sprintf("failure: %s", o.Reason)
}

func Success(statusCode int, bytesSent int64, checksum string) UploadOutcome {
	return UploadOutcome{Kind: OutcomeSuccess, StatusCode: statusCode, BytesSent: bytesSent, Checksum: checksum}
}

func LocalFailure(err error) UploadOutcome {
	return UploadOutcome{Kind: OutcomeLocalFailure, Reason: fmt.Sprintf("%s: %v", ErrFileUnreadable, err)}
}

func TransportFailure(err error) UploadOutcome {
	return UploadOutcome{Kind: OutcomeTransportFailure, Reason: fmt.Sprintf("transport error: %v", err)}
}

func ServerFailure(statusCode int) UploadOutcome {
	return UploadOutcome{Kind: OutcomeServerFailure, StatusCode: statusCode, Reason: fmt.Sprintf("server error: %d", statusCode)}
}
