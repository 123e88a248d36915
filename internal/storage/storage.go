// Package storage keeps uploaded images (attendant avatars, tenant logos)
// in an object store. The content type is sniffed from the bytes, never
// taken from the client.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/pkg/config"
)

var (
	ErrEmptyFile       = apperr.Validation("Validation failed", map[string]string{"file": "File is empty"})
	ErrUnsupportedType = apperr.Validation("Validation failed", map[string]string{"file": "Only JPEG, PNG and GIF images are accepted"})
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Backend is an object store.
type Backend interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service struct {
	backend  Backend
	maxBytes int64
	logger   *slog.Logger
}

func NewService(backend Backend, maxBytes int64, logger *slog.Logger) *Service {
	return &Service{backend: backend, maxBytes: maxBytes, logger: logger}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload validates r as an image no larger than the configured limit and
// stores it under tenant/dir/.
func (s *Service) Upload(ctx context.Context, tenantID uuid.UUID, dir string, r io.Reader) (*Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("reading upload: %w", err))
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.Validation("Validation failed", map[string]string{
			"file": fmt.Sprintf("File exceeds %d MB", s.maxBytes>>20),
		})
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowed[mtype.String()]
	if !ok {
		return nil, ErrUnsupportedType
	}

	key := path.Join(tenantID.String(), cleanDir(dir), uuid.NewString()+ext)
	if err := s.backend.Put(ctx, key, mtype.String(), bytes.NewReader(data)); err != nil {
		s.logger.Error("upload failed", "key", key, "error", err)
		return nil, apperr.Internal(err)
	}

	return &Object{Key: key, URL: s.backend.URL(key), ContentType: mtype.String(), Size: int64(len(data))}, nil
}

// Delete removes an object of the tenant. Keys outside the tenant prefix
// are rejected.
func (s *Service) Delete(ctx context.Context, tenantID uuid.UUID, key string) error {
	key = path.Clean("/" + key)[1:]
	if !strings.HasPrefix(key, tenantID.String()+"/") {
		return apperr.NotFound("upload")
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func cleanDir(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" || dir == "." {
		return "misc"
	}
	return dir
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "s3", "":
		return NewS3(ctx, cfg)
	case "gcs":
		return NewGCS(ctx, cfg)
	case "memory":
		return NewMemory(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func publicURL(base, bucket, key string) string {
	if base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	return "/" + bucket + "/" + key
}

// Memory keeps objects in process. Used by tests and local development.
type Memory struct {
	mu      sync.Mutex
	base    string
	objects map[string][]byte
	types   map[string]string
}

func NewMemory(base string) *Memory {
	return &Memory{base: base, objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *Memory) Put(_ context.Context, key, contentType string, body io.ReadSeeker) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *Memory) URL(key string) string {
	return publicURL(m.base, "memory", key)
}

// Get returns a stored object and its content type.
func (m *Memory) Get(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, m.types[key], ok
}
