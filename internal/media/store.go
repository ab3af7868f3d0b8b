// Package media stores uploaded post media in S3-compatible object storage and
// hands back the URL that posts keep.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"orbit/internal/middleware"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrUnsupportedType is returned for content types posts cannot carry.
var ErrUnsupportedType = errors.New("unsupported media type")

// Upload is one file handed to a Store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists an upload and returns a stable URL for it.
type Store interface {
	Put(ctx context.Context, ownerID uint, u Upload) (string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// ObjectKey builds the storage key for an upload. The extension follows the
// content type so feed classification can rely on it.
func ObjectKey(ownerID uint, contentType string) (string, error) {
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return path.Join("posts", fmt.Sprintf("%d", ownerID), uuid.NewString()+ext), nil
}

// Config configures an S3Store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicURL, when set, is the base that object keys are appended to.
	PublicURL string
}

// S3Store is a Store backed by MinIO or any S3-compatible service.
type S3Store struct {
	cfg    Config
	client *minio.Client
}

// NewS3Store connects to the object store. It does not create the bucket;
// call EnsureBucket during startup.
func NewS3Store(cfg Config) (*S3Store, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media store: %w", err)
	}
	cfg.Endpoint = endpoint
	return &S3Store{cfg: cfg, client: cl}, nil
}

// EnsureBucket creates the configured bucket if it does not exist.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
	}
	middleware.Logger.InfoContext(ctx, "media bucket created", slog.String("bucket", s.cfg.Bucket))
	return nil
}

// Put uploads the file and returns its URL.
func (s *S3Store) Put(ctx context.Context, ownerID uint, u Upload) (string, error) {
	key, err := ObjectKey(ownerID, u.ContentType)
	if err != nil {
		return "", err
	}
	start := time.Now()
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, u.Body, u.Size, minio.PutObjectOptions{
		ContentType: u.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	middleware.Logger.InfoContext(ctx, "media uploaded",
		slog.String("key", key),
		slog.Int64("size", u.Size),
		slog.Duration("elapsed", time.Since(start)),
	)
	return s.URLFor(key), nil
}

// URLFor returns the public URL of an object key.
func (s *S3Store) URLFor(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + key
	}
	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.Endpoint, s.cfg.Bucket, key)
}
