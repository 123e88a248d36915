package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/kanban"
)

type ColumnHandler struct {
	kanban *kanban.Service
	logger *slog.Logger
}

func NewColumnHandler(svc *kanban.Service, logger *slog.Logger) *ColumnHandler {
	return &ColumnHandler{kanban: svc, logger: logger}
}

// List handles GET /api/v1/columns
func (h *ColumnHandler) List(w http.ResponseWriter, r *http.Request) {
	columns, err := h.kanban.ListColumns(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, columns)
}

// Create handles POST /api/v1/columns
func (h *ColumnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateColumnRequest
	if !decode(w, r, &req) {
		return
	}

	column, err := h.kanban.CreateColumn(r.Context(), middleware.GetPrincipal(r.Context()), kanban.CreateColumnInput{
		Title:    req.Title,
		Color:    req.Color,
		Position: req.Position,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, column)
}

// Update handles PUT /api/v1/columns/{id}
func (h *ColumnHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdateColumnRequest
	if !decode(w, r, &req) {
		return
	}

	column, err := h.kanban.UpdateColumn(r.Context(), middleware.GetPrincipal(r.Context()), id, kanban.UpdateColumnInput{
		Title: req.Title,
		Color: req.Color,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, column)
}

// Reorder handles PUT /api/v1/columns/reorder
func (h *ColumnHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderColumnsRequest
	if !decode(w, r, &req) {
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ColumnIDs))
	for _, raw := range req.ColumnIDs {
		ids = append(ids, uuid.MustParse(raw))
	}

	columns, err := h.kanban.ReorderColumns(r.Context(), middleware.GetPrincipal(r.Context()), ids)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, columns)
}

type deleteColumnResponse struct {
	Message       string `json:"message"`
	CascadedLeads int64  `json:"cascaded_leads"`
}

// Delete handles DELETE /api/v1/columns/{id}. The column's leads go to the
// trash with it.
func (h *ColumnHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.kanban.DeleteColumn(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteColumnResponse{Message: "Column deleted", CascadedLeads: n})
}
