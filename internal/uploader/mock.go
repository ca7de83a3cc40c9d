package uploader

import (
	"context"

	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockUploader is a mock implementation of VideoUploader
type MockUploader struct {
	mock.Mock
}

func NewMockUploader() *MockUploader {
	return &MockUploader{}
}

func (m *MockUploader) Upload(ctx context.Context, path string) domain.UploadOutcome {
	args := m.Called(ctx, path)
	return args.Get(0).(domain.UploadOutcome)
}
