package service

import (
	"context"

	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockUploadService is a mock implementation of the upload service's HTTP-facing methods
type MockUploadService struct {
	mock.Mock
}

func NewMockUploadService() *MockUploadService {
	return &MockUploadService{}
}

func (m *MockUploadService) Intake(ctx context.Context, src string) (domain.UploadRecord, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(domain.UploadRecord), args.Error(1)
}

func (m *MockUploadService) Resubmit(ctx context.Context, id string) (domain.UploadRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.UploadRecord), args.Error(1)
}

func (m *MockUploadService) Get(ctx context.Context, id string) (domain.UploadRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.UploadRecord), args.Error(1)
}

func (m *MockUploadService) List(ctx context.Context, queue string, limit int64) ([]domain.UploadRecord, error) {
	args := m.Called(ctx, queue, limit)
	return args.Get(0).([]domain.UploadRecord), args.Error(1)
}

// MockPathWatcherAdmin is a mock implementation of PathWatcherAdminAction
type MockPathWatcherAdmin struct {
	mock.Mock
}

func NewMockPathWatcherAdmin() *MockPathWatcherAdmin {
	return &MockPathWatcherAdmin{}
}

func (m *MockPathWatcherAdmin) AddAndWatchPath(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockPathWatcherAdmin) DeleteWatchPath(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockPathWatcherAdmin) WatchedPaths() []string {
	return m.Called().Get(0).([]string)
}
