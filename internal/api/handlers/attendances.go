package handlers

import (
	"net/http"

	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/kanban"
)

// ListAttendances handles GET /leads/{id}/attendances
func (h *LeadHandler) ListAttendances(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.kanban.ListAttendances(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateAttendance handles POST /leads/{id}/attendances
func (h *LeadHandler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AttendanceRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.kanban.CreateAttendance(r.Context(), middleware.GetPrincipal(r.Context()), id, kanban.AttendanceInput{
		Type:        req.Type,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      models.AttendanceStatus(req.Status),
		Priority:    req.Priority,
		ScheduledAt: req.ScheduledAt,
		CompletedAt: req.CompletedAt,
		Outcome:     req.Outcome,
		NextAction:  req.NextAction,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateAttendance handles PUT /attendances/{id}
func (h *LeadHandler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdateAttendanceRequest
	if !decode(w, r, &req) {
		return
	}

	in := kanban.UpdateAttendanceInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		ScheduledAt: req.ScheduledAt,
		CompletedAt: req.CompletedAt,
		Outcome:     req.Outcome,
		NextAction:  req.NextAction,
		Tags:        req.Tags,
	}
	if req.Status != nil {
		status := models.AttendanceStatus(*req.Status)
		in.Status = &status
	}

	item, err := h.kanban.UpdateAttendance(r.Context(), middleware.GetPrincipal(r.Context()), id, in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteAttendance handles DELETE /attendances/{id}
func (h *LeadHandler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.kanban.DeleteAttendance(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
