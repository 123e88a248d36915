package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/kanban"
)

// LeadHandler serves both the back office and the attendant area; what a
// caller sees follows from the principal in the request context.
type LeadHandler struct {
	kanban         *kanban.Service
	logger         *slog.Logger
	maxImportBytes int64
}

func NewLeadHandler(svc *kanban.Service, logger *slog.Logger, maxImportBytes int64) *LeadHandler {
	return &LeadHandler{kanban: svc, logger: logger, maxImportBytes: maxImportBytes}
}

// List handles GET /leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination(r)
	q := r.URL.Query()

	filter := kanban.LeadFilter{
		ColumnID:    queryID(r, "column_id"),
		AttendantID: queryID(r, "attendant_id"),
		Unassigned:  q.Get("unassigned") == "true",
		Status:      q.Get("status"),
		Search:      strings.TrimSpace(q.Get("search")),
		Offset:      page.Offset(),
		Limit:       page.PerPage,
	}

	leads, total, err := h.kanban.ListLeads(r.Context(), middleware.GetPrincipal(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(leads, total, page))
}

// Board handles GET /leads/board
func (h *LeadHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.kanban.Board(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Get handles GET /leads/{id}. For an attendant, opening an unassigned lead
// claims it.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	lead, err := h.kanban.GetLead(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Create handles POST /leads
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLeadRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := h.kanban.CreateLead(r.Context(), middleware.GetPrincipal(r.Context()), kanban.CreateLeadInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		Source:      req.Source,
		Notes:       req.Notes,
		Value:       req.Value,
		ColumnID:    optionalID(req.ColumnID),
		AttendantID: optionalID(req.AttendantID),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// Update handles PUT /leads/{id}
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdateLeadRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := h.kanban.UpdateLead(r.Context(), middleware.GetPrincipal(r.Context()), id, kanban.UpdateLeadInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Source:  req.Source,
		Notes:   req.Notes,
		Value:   req.Value,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Move handles POST /leads/{id}/move
func (h *LeadHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.MoveLeadRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := h.kanban.MoveLead(r.Context(), middleware.GetPrincipal(r.Context()), id, kanban.MoveLeadInput{
		ColumnID: uuid.MustParse(req.ColumnID),
		Position: req.Position,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Assign handles POST /leads/{id}/assign
func (h *LeadHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AssignLeadRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := h.kanban.AssignLead(r.Context(), middleware.GetPrincipal(r.Context()), id, optionalID(req.AttendantID))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Claim handles POST /attendant/leads/{id}/claim
func (h *LeadHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ap := middleware.GetAttendantPrincipal(r.Context())
	if ap == nil {
		respondError(w, r, h.logger, kanban.ErrSystemOnly)
		return
	}

	lead, err := h.kanban.ClaimLead(r.Context(), ap, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Reorder handles PUT /leads/reorder. The batch applies entirely or not
// at all.
func (h *LeadHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderLeadsRequest
	if !decode(w, r, &req) {
		return
	}

	items := make([]kanban.ReorderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = kanban.ReorderItem{
			LeadID:   uuid.MustParse(it.LeadID),
			Position: it.Position,
		}
		if it.ColumnID != "" {
			id := uuid.MustParse(it.ColumnID)
			items[i].ColumnID = &id
		}
	}

	if err := h.kanban.Reorder(r.Context(), middleware.GetPrincipal(r.Context()), items); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Leads reordered"})
}

// Delete handles DELETE /leads/{id}
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.kanban.DeleteLead(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Lead moved to trash"})
}

// Restore handles POST /leads/{id}/restore
func (h *LeadHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lead, err := h.kanban.RestoreLead(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Purge handles DELETE /leads/{id}/permanent
func (h *LeadHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.kanban.PurgeLead(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type trashedLead struct {
	models.Lead
	DeletedAt *time.Time `json:"deleted_at"`
}

// Trash handles GET /leads/trash
func (h *LeadHandler) Trash(w http.ResponseWriter, r *http.Request) {
	page := pagination(r)
	leads, total, err := h.kanban.ListDeleted(r.Context(), middleware.GetPrincipal(r.Context()), page.Offset(), page.PerPage)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	out := make([]trashedLead, len(leads))
	for i := range leads {
		out[i] = trashedLead{Lead: leads[i], DeletedAt: leads[i].DeletedTime()}
	}
	writeJSON(w, http.StatusOK, paginated(out, total, page))
}

// Stats handles GET /stats/dashboard
func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.kanban.Dashboard(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
