// Package storage archives call recording audio into MinIO so recordings
// survive provider-side retention windows.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const downloadTimeout = 60 * time.Second

// RecordingArchive copies provider-hosted recording audio into object
// storage. A nil archive is a valid no-op used when MinIO is not configured.
type RecordingArchive struct {
	client *minio.Client
	bucket string
	http   *http.Client
	log    *logger.Logger
}

// NewRecordingArchive creates the archive, or nil when MinIO is disabled.
func NewRecordingArchive(cfg config.StorageConfig, log *logger.Logger) (*RecordingArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &RecordingArchive{
		client: client,
		bucket: cfg.GetMinioBucketCallRecordings(),
		http:   &http.Client{Timeout: downloadTimeout},
		log:    log,
	}, nil
}

// EnsureBucketExists creates the recordings bucket if it doesn't exist.
func (a *RecordingArchive) EnsureBucketExists(ctx context.Context) error {
	if a == nil {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// ArchiveRecording streams the provider's recording audio into the bucket
// and returns the stored object key.
func (a *RecordingArchive) ArchiveRecording(ctx context.Context, callID uuid.UUID, recordingURL string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("recording archive is disabled")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download recording: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("recording download returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	objectKey := fmt.Sprintf("calls/%s/%s.mp3", callID, uuid.New().String()[:8])
	_, err = a.client.PutObject(ctx, a.bucket, objectKey, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording %s: %w", objectKey, err)
	}

	a.log.Info("archived call recording", "callId", callID, "objectKey", objectKey)
	return objectKey, nil
}
