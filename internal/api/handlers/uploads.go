package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/storage"
)

var uploadDirs = map[string]bool{
	"avatars": true,
	"logos":   true,
	"leads":   true,
}

type UploadHandler struct {
	storage *storage.Service
	logger  *slog.Logger
}

func NewUploadHandler(store *storage.Service, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{storage: store, logger: logger}
}

// Create handles POST /api/v1/uploads with a multipart "file" field and an
// optional "dir" naming where the image belongs.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file.
	limit := h.storage.MaxBytes() + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, h.logger, apperr.Validation("Validation failed", map[string]string{"file": "File is too large"}))
			return
		}
		respondError(w, r, h.logger, errNoFile)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, h.logger, errNoFile)
		return
	}
	defer file.Close()

	dir := r.FormValue("dir")
	if dir == "" {
		dir = "misc"
	}
	if dir != "misc" && !uploadDirs[dir] {
		respondError(w, r, h.logger, apperr.Validation("Validation failed", map[string]string{"dir": "Unknown upload directory"}))
		return
	}

	p := middleware.GetPrincipal(r.Context())
	obj, err := h.storage.Upload(r.Context(), p.Tenant(), dir, file)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("file uploaded", "key", obj.Key, "size", obj.Size, "content_type", obj.ContentType, "actor", p.ID())
	writeJSON(w, http.StatusCreated, obj)
}

// Delete handles DELETE /api/v1/uploads?key=...
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, r, h.logger, apperr.Validation("Validation failed", map[string]string{"key": "key is required"}))
		return
	}
	if err := h.storage.Delete(r.Context(), middleware.GetPrincipal(r.Context()).Tenant(), key); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
