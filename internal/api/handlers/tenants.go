package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/gorm"
)

var errTenantHasUsers = apperr.Conflict("tenant still has users")

// TenantHandler manages tenants. Every route is restricted to super admins
// by the router.
type TenantHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewTenantHandler(db *gorm.DB, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{db: db, logger: logger}
}

// List handles GET /api/v1/tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination(r)
	query := h.db.WithContext(r.Context()).Model(&models.Tenant{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR slug LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}

	var tenants []models.Tenant
	if err := query.Order("name ASC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&tenants).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, paginated(tenants, total, page))
}

func (h *TenantHandler) load(w http.ResponseWriter, r *http.Request) (*models.Tenant, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var tenant models.Tenant
	if err := h.db.WithContext(r.Context()).First(&tenant, "id = ?", id).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "tenant"))
		return nil, false
	}
	return &tenant, true
}

// Get handles GET /api/v1/tenants/{id}
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Create handles POST /api/v1/tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTenantRequest
	if !decode(w, r, &req) {
		return
	}

	tenant := models.Tenant{
		Name:     strings.TrimSpace(req.Name),
		Slug:     req.Slug,
		Domain:   req.Domain,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := h.db.WithContext(r.Context()).Create(&tenant).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "tenant"))
		return
	}

	h.logger.Info("tenant created", "tenant_id", tenant.ID, "slug", tenant.Slug)
	writeJSON(w, http.StatusCreated, tenant)
}

// Update handles PUT /api/v1/tenants/{id}
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.UpdateTenantRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Name != nil {
		tenant.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		tenant.Slug = *req.Slug
	}
	if req.Domain != nil {
		tenant.Domain = req.Domain
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}

	// Save runs BeforeSave, which normalizes slug and domain.
	if err := h.db.WithContext(r.Context()).Save(tenant).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "tenant"))
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Delete handles DELETE /api/v1/tenants/{id}. A tenant that still has
// users cannot be removed.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.load(w, r)
	if !ok {
		return
	}

	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&models.User{}).Where("tenant_id = ?", tenant.ID).Count(&users).Error; err != nil {
			return apperr.Internal(err)
		}
		if users > 0 {
			return errTenantHasUsers
		}
		if err := tx.Delete(tenant).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("tenant deleted", "tenant_id", tenant.ID)
	w.WriteHeader(http.StatusNoContent)
}
