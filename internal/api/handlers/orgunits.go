package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/gorm"
)

// OrgUnitHandler serves one kind of org unit: departments, positions or
// functions.
type OrgUnitHandler struct {
	db     *gorm.DB
	kind   models.OrgUnitKind
	logger *slog.Logger
}

func NewOrgUnitHandler(db *gorm.DB, kind models.OrgUnitKind, logger *slog.Logger) *OrgUnitHandler {
	return &OrgUnitHandler{db: db, kind: kind, logger: logger}
}

func (h *OrgUnitHandler) scoped(r *http.Request) *gorm.DB {
	tenantID := middleware.GetPrincipal(r.Context()).Tenant()
	return h.db.WithContext(r.Context()).Where("tenant_id = ? AND kind = ?", tenantID, h.kind)
}

func (h *OrgUnitHandler) List(w http.ResponseWriter, r *http.Request) {
	query := h.scoped(r)
	if r.URL.Query().Get("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var units []models.OrgUnit
	if err := query.Order("name ASC").Find(&units).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *OrgUnitHandler) load(w http.ResponseWriter, r *http.Request) (*models.OrgUnit, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var unit models.OrgUnit
	if err := h.scoped(r).First(&unit, "id = ?", id).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, string(h.kind)))
		return nil, false
	}
	return &unit, true
}

func (h *OrgUnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (h *OrgUnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.OrgUnitRequest
	if !decode(w, r, &req) {
		return
	}

	unit := models.OrgUnit{
		TenantID:    middleware.GetPrincipal(r.Context()).Tenant(),
		Kind:        h.kind,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.db.WithContext(r.Context()).Create(&unit).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, string(h.kind)))
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (h *OrgUnitHandler) Update(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.UpdateOrgUnitRequest
	if !decode(w, r, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
		unit.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
		unit.Description = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
		unit.IsActive = *req.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(r.Context()).Model(&models.OrgUnit{}).Where("id = ?", unit.ID).Updates(updates).Error; err != nil {
			respondError(w, r, h.logger, dbError(err, string(h.kind)))
			return
		}
	}
	writeJSON(w, http.StatusOK, unit)
}

// Delete detaches the unit from its attendants before removing it.
func (h *OrgUnitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.load(w, r)
	if !ok {
		return
	}

	column := string(h.kind) + "_id"
	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Attendant{}).Where(column+" = ?", unit.ID).Update(column, nil).Error; err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Delete(unit).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
