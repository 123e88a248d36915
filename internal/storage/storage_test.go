package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	gifHeader = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
	jpgHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func newTestService(max int64) (*Service, *Memory) {
	mem := NewMemory("https://cdn.example.com")
	return NewService(mem, max, slog.New(slog.NewTextHandler(io.Discard, nil))), mem
}

func TestUpload_AcceptsImages(t *testing.T) {
	svc, mem := newTestService(1 << 20)
	tenant := uuid.New()

	tests := []struct {
		name string
		data []byte
		ct   string
		ext  string
	}{
		{"png", pngHeader, "image/png", ".png"},
		{"gif", gifHeader, "image/gif", ".gif"},
		{"jpeg", jpgHeader, "image/jpeg", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := svc.Upload(context.Background(), tenant, "avatars", bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.ct, obj.ContentType)
			assert.True(t, strings.HasPrefix(obj.Key, tenant.String()+"/avatars/"))
			assert.True(t, strings.HasSuffix(obj.Key, tt.ext))
			assert.Equal(t, "https://cdn.example.com/"+obj.Key, obj.URL)

			data, ct, ok := mem.Get(obj.Key)
			require.True(t, ok)
			assert.Equal(t, tt.data, data)
			assert.Equal(t, tt.ct, ct)
		})
	}
}

func TestUpload_Rejects(t *testing.T) {
	svc, _ := newTestService(64)
	tenant := uuid.New()

	_, err := svc.Upload(context.Background(), tenant, "x", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(context.Background(), tenant, "x", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)

	big := append(append([]byte{}, pngHeader...), make([]byte, 100)...)
	_, err = svc.Upload(context.Background(), tenant, "x", bytes.NewReader(big))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDelete_TenantPrefix(t *testing.T) {
	svc, mem := newTestService(1 << 20)
	tenant := uuid.New()
	obj, err := svc.Upload(context.Background(), tenant, "../../etc", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Key, tenant.String()+"/etc/"))

	other := uuid.New()
	err = svc.Delete(context.Background(), other, obj.Key)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(context.Background(), other, other.String()+"/../"+obj.Key)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, svc.Delete(context.Background(), tenant, obj.Key))
	_, _, ok := mem.Get(obj.Key)
	assert.False(t, ok)
}
