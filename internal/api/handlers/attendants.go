package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/visibility"
	"gorm.io/gorm"
)

var (
	errPasswordRequired  = apperr.Validation("Validation failed", map[string]string{"password": "A password is required when login is enabled"})
	errManagerOutOfReach = apperr.Forbidden("manager is outside your hierarchy")
)

type AttendantHandler struct {
	db     *gorm.DB
	graph  *hierarchy.Graph
	scopes *visibility.Resolver
	logger *slog.Logger
}

func NewAttendantHandler(db *gorm.DB, graph *hierarchy.Graph, scopes *visibility.Resolver, logger *slog.Logger) *AttendantHandler {
	return &AttendantHandler{db: db, graph: graph, scopes: scopes, logger: logger}
}

// List handles GET /api/v1/attendants
func (h *AttendantHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.scopes.AttendantScope(ctx, middleware.GetPrincipal(ctx))
	if err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}
	page := pagination(r)

	query := scope.Apply(h.db.WithContext(ctx).Model(&models.Attendant{}))
	if id := queryID(r, "manager_id"); id != nil {
		query = query.Where("attendants.manager_id = ?", *id)
	}
	if id := queryID(r, "department_id"); id != nil {
		query = query.Where("attendants.department_id = ?", *id)
	}
	switch r.URL.Query().Get("active") {
	case "true":
		query = query.Where("attendants.is_active = ?", true)
	case "false":
		query = query.Where("attendants.is_active = ?", false)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(attendants.name) LIKE ? OR LOWER(attendants.email) LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}

	var attendants []models.Attendant
	if err := query.Order("attendants.name ASC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&attendants).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, paginated(attendants, total, page))
}

func (h *AttendantHandler) load(w http.ResponseWriter, r *http.Request) (*models.Attendant, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	ctx := r.Context()
	scope, err := h.scopes.AttendantScope(ctx, middleware.GetPrincipal(ctx))
	if err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return nil, false
	}

	var attendant models.Attendant
	if err := scope.Apply(h.db.WithContext(ctx)).First(&attendant, "attendants.id = ?", id).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "attendant"))
		return nil, false
	}
	return &attendant, true
}

// Get handles GET /api/v1/attendants/{id}
func (h *AttendantHandler) Get(w http.ResponseWriter, r *http.Request) {
	attendant, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, attendant)
}

// placement resolves the manager and admin an attendant is filed under.
// Admins may file under one of their managers; managers always file under
// themselves.
func (h *AttendantHandler) placement(ctx context.Context, p *auth.SystemPrincipal, managerID *uuid.UUID) (manager, admin *uuid.UUID, err error) {
	if p.Role == models.RoleManager && !p.IsSuperAdmin {
		var self models.User
		if err := h.db.WithContext(ctx).Select("id", "admin_id").First(&self, "id = ?", p.UserID).Error; err != nil {
			return nil, nil, dbError(err, "user")
		}
		id := p.UserID
		return &id, self.AdminID, nil
	}

	if managerID == nil {
		if p.IsSuperAdmin {
			return nil, nil, nil
		}
		id := p.UserID
		return nil, &id, nil
	}

	var mgr models.User
	if err := h.db.WithContext(ctx).
		Where("id = ? AND role = ? AND tenant_id = ?", *managerID, models.RoleManager, p.TenantID).
		First(&mgr).Error; err != nil {
		return nil, nil, dbError(err, "manager")
	}
	if !p.IsSuperAdmin {
		managers, err := h.graph.ManagersOf(ctx, p.UserID)
		if err != nil {
			return nil, nil, apperr.Internal(err)
		}
		if !hierarchy.Contains(managers, mgr.ID) {
			return nil, nil, errManagerOutOfReach
		}
	}
	return &mgr.ID, mgr.AdminID, nil
}

// checkOrgUnits verifies that each given id names an org unit of the right
// kind in the tenant.
func (h *AttendantHandler) checkOrgUnits(ctx context.Context, tenantID uuid.UUID, units map[models.OrgUnitKind]*uuid.UUID) error {
	for kind, id := range units {
		if id == nil {
			continue
		}
		var n int64
		if err := h.db.WithContext(ctx).Model(&models.OrgUnit{}).
			Where("id = ? AND tenant_id = ? AND kind = ?", *id, tenantID, kind).
			Count(&n).Error; err != nil {
			return apperr.Internal(err)
		}
		if n == 0 {
			return apperr.Validation("Validation failed", map[string]string{string(kind) + "_id": "Unknown " + string(kind)})
		}
	}
	return nil
}

// Create handles POST /api/v1/attendants
func (h *AttendantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAttendantRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	p := middleware.GetSystemPrincipal(ctx)

	if req.LoginEnabled && req.Password == "" {
		respondError(w, r, h.logger, errPasswordRequired)
		return
	}

	managerID, adminID, err := h.placement(ctx, p, optionalID(req.ManagerID))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	attendant := models.Attendant{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		LoginEnabled: req.LoginEnabled,
		IsActive:     true,
		TenantID:     p.TenantID,
		ManagerID:    managerID,
		AdminID:      adminID,
		DepartmentID: optionalID(req.DepartmentID),
		PositionID:   optionalID(req.PositionID),
		FunctionID:   optionalID(req.FunctionID),
		AvatarURL:    req.AvatarURL,
	}
	if err := h.checkOrgUnits(ctx, p.TenantID, map[models.OrgUnitKind]*uuid.UUID{
		models.OrgUnitDepartment: attendant.DepartmentID,
		models.OrgUnitPosition:   attendant.PositionID,
		models.OrgUnitFunction:   attendant.FunctionID,
	}); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, r, h.logger, apperr.Internal(err))
			return
		}
		attendant.PasswordHash = hash
	}

	if err := h.db.WithContext(ctx).Create(&attendant).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "attendant"))
		return
	}

	h.logger.Info("attendant created", "attendant_id", attendant.ID, "tenant_id", attendant.TenantID, "created_by", p.UserID)
	writeJSON(w, http.StatusCreated, attendant)
}

// Update handles PUT /api/v1/attendants/{id}
func (h *AttendantHandler) Update(w http.ResponseWriter, r *http.Request) {
	attendant, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.UpdateAttendantRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	p := middleware.GetSystemPrincipal(ctx)

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.LoginEnabled != nil {
		if *req.LoginEnabled && attendant.PasswordHash == "" && req.Password == nil {
			respondError(w, r, h.logger, errPasswordRequired)
			return
		}
		updates["login_enabled"] = *req.LoginEnabled
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			respondError(w, r, h.logger, apperr.Internal(err))
			return
		}
		updates["password_hash"] = hash
	}
	if req.ManagerID != nil {
		managerID, adminID, err := h.placement(ctx, p, optionalID(req.ManagerID))
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		updates["manager_id"] = managerID
		updates["admin_id"] = adminID
	}

	units := map[models.OrgUnitKind]*uuid.UUID{}
	for kind, raw := range map[models.OrgUnitKind]*string{
		models.OrgUnitDepartment: req.DepartmentID,
		models.OrgUnitPosition:   req.PositionID,
		models.OrgUnitFunction:   req.FunctionID,
	} {
		if raw != nil {
			units[kind] = optionalID(raw)
			updates[string(kind)+"_id"] = units[kind]
		}
	}
	if err := h.checkOrgUnits(ctx, attendant.TenantID, units); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(attendant).Updates(updates).Error; err != nil {
			respondError(w, r, h.logger, dbError(err, "attendant"))
			return
		}
	}

	var fresh models.Attendant
	if err := h.db.WithContext(ctx).First(&fresh, "id = ?", attendant.ID).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "attendant"))
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}

// Delete handles DELETE /api/v1/attendants/{id}. The attendant's active
// leads return to the unassigned pool.
func (h *AttendantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	attendant, ok := h.load(w, r)
	if !ok {
		return
	}
	p := middleware.GetSystemPrincipal(r.Context())

	var released int64
	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Lead{}).Where("attendant_id = ?", attendant.ID).Update("attendant_id", nil)
		if res.Error != nil {
			return apperr.Internal(res.Error)
		}
		released = res.RowsAffected
		if err := tx.Delete(attendant).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("attendant deleted", "attendant_id", attendant.ID, "released_leads", released, "deleted_by", p.UserID)
	w.WriteHeader(http.StatusNoContent)
}
