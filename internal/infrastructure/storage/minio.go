package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/garyjia/design-bureau/internal/application/port"
)

// KeepMarker is the object that stands in for an empty folder
const KeepMarker = ".keep"

// MinioConfig holds connection settings for an S3-compatible bucket
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string

	MaxAttempts  int
	InitialDelay time.Duration
}

// objectStore is the subset of *minio.Client the transport uses
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinioFolderTransport implements port.FolderTransport on a bucket where
// folders are key prefixes. Every remote call is retried with exponential backoff.
type MinioFolderTransport struct {
	client objectStore
	bucket string
	prefix string
	retry  retry.Config
	logger *zap.Logger
}

var _ port.FolderTransport = (*MinioFolderTransport)(nil)

// NewMinioFolderTransport connects to the bucket and creates it when missing
func NewMinioFolderTransport(ctx context.Context, cfg MinioConfig, logger *zap.Logger) (*MinioFolderTransport, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	t := newMinioTransport(client, cfg, logger)
	if err := t.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func newMinioTransport(client objectStore, cfg MinioConfig, logger *zap.Logger) *MinioFolderTransport {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.InitialDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &MinioFolderTransport{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		retry: retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			BackoffPolicy: retry.BackoffExponential,
		},
		logger: logger,
	}
}

// EnsureBucket creates the bucket if it doesn't exist
func (t *MinioFolderTransport) EnsureBucket(ctx context.Context) error {
	return t.do(ctx, "ensure bucket", func(ctx context.Context) error {
		exists, err := t.client.BucketExists(ctx, t.bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket: %w", err)
		}
		if exists {
			return nil
		}
		if err := t.client.MakeBucket(ctx, t.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
}

func (t *MinioFolderTransport) CreateFolder(ctx context.Context, p string) error {
	dir, err := t.dirKey(p)
	if err != nil {
		return err
	}
	return t.do(ctx, "create folder", func(ctx context.Context) error {
		_, err := t.client.PutObject(ctx, t.bucket, dir+KeepMarker, bytes.NewReader(nil), 0, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return fmt.Errorf("failed to create folder marker: %w", err)
		}
		return nil
	})
}

// CopyContents server-side copies every object under oldPath to newPath
func (t *MinioFolderTransport) CopyContents(ctx context.Context, oldPath, newPath string) error {
	src, err := t.dirKey(oldPath)
	if err != nil {
		return err
	}
	dst, err := t.dirKey(newPath)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	keys, err := t.list(ctx, src)
	if err != nil {
		return err
	}
	for _, key := range keys {
		target := dst + strings.TrimPrefix(key, src)
		err := t.do(ctx, "copy object", func(ctx context.Context) error {
			_, err := t.client.CopyObject(ctx,
				minio.CopyDestOptions{Bucket: t.bucket, Object: target},
				minio.CopySrcOptions{Bucket: t.bucket, Object: key})
			if err != nil {
				return fmt.Errorf("failed to copy %s: %w", key, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	t.logger.Debug("Copied folder contents",
		zap.String("old_path", oldPath),
		zap.String("new_path", newPath),
		zap.Int("objects", len(keys)))
	return nil
}

// DeleteFolder removes every object under the prefix
func (t *MinioFolderTransport) DeleteFolder(ctx context.Context, p string) error {
	dir, err := t.dirKey(p)
	if err != nil {
		return err
	}
	keys, err := t.list(ctx, dir)
	if err != nil {
		return err
	}
	for _, key := range keys {
		err := t.do(ctx, "remove object", func(ctx context.Context) error {
			if err := t.client.RemoveObject(ctx, t.bucket, key, minio.RemoveObjectOptions{}); err != nil {
				return fmt.Errorf("failed to remove %s: %w", key, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *MinioFolderTransport) Exists(ctx context.Context, p string) (bool, error) {
	dir, err := t.dirKey(p)
	if err != nil {
		return false, err
	}

	var found bool
	err = t.do(ctx, "stat folder", func(ctx context.Context) error {
		listCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range t.client.ListObjects(listCtx, t.bucket, minio.ListObjectsOptions{Prefix: dir, Recursive: true, MaxKeys: 1}) {
			if obj.Err != nil {
				return fmt.Errorf("failed to list %s: %w", dir, obj.Err)
			}
			found = true
			return nil
		}
		return nil
	})
	return found, err
}

func (t *MinioFolderTransport) list(ctx context.Context, dir string) ([]string, error) {
	var keys []string
	err := t.do(ctx, "list folder", func(ctx context.Context) error {
		keys = keys[:0]
		for obj := range t.client.ListObjects(ctx, t.bucket, minio.ListObjectsOptions{Prefix: dir, Recursive: true}) {
			if obj.Err != nil {
				return fmt.Errorf("failed to list %s: %w", dir, obj.Err)
			}
			keys = append(keys, obj.Key)
		}
		return nil
	})
	return keys, err
}

// dirKey turns a folder path into an object key prefix ending in "/"
func (t *MinioFolderTransport) dirKey(p string) (string, error) {
	var parts []string
	for _, seg := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("invalid folder path %q", p)
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("refusing to operate on the bucket root")
	}
	if t.prefix != "" {
		parts = append([]string{t.prefix}, parts...)
	}
	return strings.Join(parts, "/") + "/", nil
}

func (t *MinioFolderTransport) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	r := retry.New[struct{}](t.retry)
	_, err := r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if err != nil {
		t.logger.Warn("Bucket operation failed",
			zap.String("op", op),
			zap.String("bucket", t.bucket),
			zap.Error(err))
	}
	return err
}
