package adapter

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockArchiver is a mock implementation of Archiver
type MockArchiver struct {
	mock.Mock
}

func NewMockArchiver() *MockArchiver {
	return &MockArchiver{}
}

func (m *MockArchiver) PutObjectWithIdempotency(ctx context.Context, objectName string, data io.Reader, hash string, size int64, userMetadata map[string]string) error {
	args := m.Called(ctx, objectName, data, hash, size, userMetadata)
	return args.Error(0)
}
