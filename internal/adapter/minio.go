package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonno85/video-uploader/internal/config"
	"github.com/jonno85/video-uploader/internal/service/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxUploadAttempts = 5
	initialBackoff    = 100 * time.Millisecond
)

var ErrHashMismatch = errors.New("object already exists but hash does not match")

// Archiver keeps a copy of every successfully uploaded video.
type Archiver interface {
	PutObjectWithIdempotency(ctx context.Context, objectName string, data io.Reader, hash string, size int64, userMetadata map[string]string) error
}

type S3ClientImpl struct {
	s3Client *minio.Client
	bucket   string
	region   string
}

func NewMinioClient(cfg config.MinioConfig) (*S3ClientImpl, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &S3ClientImpl{
		s3Client: client,
		bucket:   cfg.ArchiveBucket,
		region:   cfg.Region,
	}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *S3ClientImpl) EnsureBucket(ctx context.Context) error {
	exists, err := s.s3Client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.s3Client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	slog.Info("Bucket created", "bucket", s.bucket)
	return nil
}

// PutObjectWithIdempotency skips objects already stored with the same hash and retries the put with backoff.
func (s *S3ClientImpl) PutObjectWithIdempotency(ctx context.Context, objectName string, data io.Reader, hash string, size int64, userMetadata map[string]string) error {
	objInfo, err := s.s3Client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	if err == nil {
		// MinIO/S3 prefixes user metadata with "X-Amz-Meta-"
		remoteHash := objInfo.UserMetadata["X-Amz-Meta-Hash"]
		if remoteHash == "" {
			remoteHash = objInfo.UserMetadata["Hash"]
		}
		if remoteHash == hash {
			slog.Info("Object already exists and hash matches", "object", objectName, "hash", hash)
			return nil
		}
		slog.Warn("Object already exists but hash does not match", "object", objectName, "remoteHash", remoteHash, "hash", hash)
		return ErrHashMismatch
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to stat %s: %w", objectName, err)
	}

	metadata := map[string]string{"hash": hash}
	for k, v := range userMetadata {
		metadata[k] = v
	}

	seeker, rewindable := data.(io.Seeker)
	_, err = utils.Retry(ctx, maxUploadAttempts, initialBackoff, func() (minio.UploadInfo, error) {
		if rewindable {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return minio.UploadInfo{}, err
			}
		}
		return s.s3Client.PutObject(ctx, s.bucket, objectName, data, size, minio.PutObjectOptions{
			ContentType:  "video/mp4",
			UserMetadata: metadata,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", objectName, err)
	}
	slog.Debug("Archived object", "bucket", s.bucket, "object", objectName, "size", size)
	return nil
}
