package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/hugh/leadboard/pkg/config"
	"google.golang.org/api/option"
)

type GCS struct {
	client *gcs.Client
	bucket string
	base   string
}

// NewGCS uses application default credentials.
func NewGCS(ctx context.Context, cfg config.StorageConfig) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket, base: cfg.PublicBaseURL}, nil
}

func (b *GCS) Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error {
	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", b.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gs://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}

func (b *GCS) Delete(ctx context.Context, key string) error {
	err := b.client.Bucket(b.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("deleting gs://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}

func (b *GCS) URL(key string) string {
	if b.base == "" {
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, key)
	}
	return publicURL(b.base, b.bucket, key)
}

func (b *GCS) Close() error {
	return b.client.Close()
}
