// Package assets stores image bytes on an S3-compatible host and hands back
// the public URL and the handle needed to delete them later.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Folder prefixes every uploaded object key.
const Folder = "meme-manager"

// Asset is a hosted image.
type Asset struct {
	URL        string
	ExternalID string
}

// Host uploads and deletes hosted images.
type Host interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (Asset, error)
	Delete(ctx context.Context, externalID string) error
}

// MinIO hosts assets in a bucket. It is safe for concurrent use.
type MinIO struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

var _ Host = (*MinIO)(nil)

// NewMinIO creates a host for cfg. Nothing is contacted until EnsureBucket
// or the first upload.
func NewMinIO(cfg types.AssetsConfig) (*MinIO, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("asset endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("asset bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBase, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinIO{client: cli, bucket: cfg.Bucket, publicBase: base}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload stores data under a fresh key that keeps the file extension.
func (m *MinIO) Upload(ctx context.Context, name string, data []byte, contentType string) (Asset, error) {
	key := ObjectKey(name)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Asset{}, fmt.Errorf("upload %s: %w", name, err)
	}
	return Asset{URL: m.URL(key), ExternalID: key}, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (m *MinIO) Delete(ctx context.Context, externalID string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, externalID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", externalID, err)
	}
	return nil
}

// URL returns the public location of key.
func (m *MinIO) URL(key string) string {
	return m.publicBase + "/" + key
}

// ObjectKey builds a unique key for a file name.
func ObjectKey(name string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return path.Join(Folder, id.String()+strings.ToLower(path.Ext(name)))
}
