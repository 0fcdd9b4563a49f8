// Package backup ships database backups to S3-compatible storage. When no
// bucket is configured the NoopUploader is used and backups stay on local
// disk only.
package backup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/ascend/internal/config"
)

// ErrNotConfigured is returned when off-site backup storage is not configured.
var ErrNotConfigured = errors.New("backup storage not configured")

// keyPrefix is where backups live in the bucket.
const keyPrefix = "ascend/backups/"

// Uploader uploads backup files and hands out download links for them.
type Uploader interface {
	// Upload stores the file at filePath and returns its object key.
	Upload(ctx context.Context, filePath string) (key string, err error)

	// PresignedURL returns a time-limited download URL for key.
	// Returns ErrNotConfigured when S3 is not configured.
	PresignedURL(ctx context.Context, key string) (url string, expiry time.Time, err error)
}

// s3Client is the subset of *minio.Client used by S3Uploader.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader uploads backups to S3-compatible storage.
type S3Uploader struct {
	client    s3Client
	bucket    string
	urlExpiry time.Duration
}

// Upload uploads the backup file at filePath under its base name.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) (string, error) {
	key := objectKey(filePath)
	if err := u.client.FPutObject(ctx, u.bucket, key, filePath); err != nil {
		return "", fmt.Errorf("upload backup to S3: %w", err)
	}
	return key, nil
}

// PresignedURL returns a pre-signed GET URL for key.
func (u *S3Uploader) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, key, u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	return presigned.String(), time.Now().Add(u.urlExpiry), nil
}

// NoopUploader is used when S3 storage is not configured.
type NoopUploader struct{}

// Upload does nothing and returns an empty key.
func (u *NoopUploader) Upload(ctx context.Context, filePath string) (string, error) {
	return "", nil
}

// PresignedURL returns ErrNotConfigured.
func (u *NoopUploader) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader returns a NoopUploader when no bucket is configured and an
// S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		urlExpiry: time.Duration(cfg.URLExpiry),
	}, nil
}

// stripScheme removes an http:// or https:// prefix from endpoint, since
// minio wants a bare host. An explicit scheme decides useSSL.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*useSSL = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

// objectKey returns the object key for a local backup file.
func objectKey(filePath string) string {
	return keyPrefix + filepath.Base(filePath)
}
