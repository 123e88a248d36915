package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/settings"
)

type SettingsHandler struct {
	settings *settings.Cache
	logger   *slog.Logger
}

func NewSettingsHandler(cache *settings.Cache, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: cache, logger: logger}
}

// List handles GET /api/v1/settings. Secret values are masked.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.settings.List(r.Context(), middleware.GetPrincipal(r.Context()).Tenant())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Put handles PUT /api/v1/settings
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req dto.SettingRequest
	if !decode(w, r, &req) {
		return
	}
	p := middleware.GetPrincipal(r.Context())

	if err := h.settings.Set(r.Context(), p.Tenant(), req.Key, req.Value, req.IsSecret); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	value := req.Value
	if req.IsSecret {
		value = settings.SecretMask
	}
	h.logger.Info("setting updated", "tenant_id", p.Tenant(), "key", req.Key, "actor", p.ID())
	writeJSON(w, http.StatusOK, settings.Entry{Key: req.Key, Value: value, IsSecret: req.IsSecret})
}

// Delete handles DELETE /api/v1/settings/{key}
func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if err := h.settings.Delete(r.Context(), p.Tenant(), chi.URLParam(r, "key")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
