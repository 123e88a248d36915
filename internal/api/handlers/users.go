package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/gorm"
)

var (
	errAdminCreatesManagers = apperr.Forbidden("admins may only create managers")
	errManagerNeedsAdmin    = apperr.Validation("Validation failed", map[string]string{"admin_id": "A manager must belong to an admin"})
	errDeleteSelf           = apperr.Conflict("you cannot delete your own account")
)

// UserHandler manages system users. Super admins create admins; an admin
// creates managers under itself.
type UserHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewUserHandler(db *gorm.DB, logger *slog.Logger) *UserHandler {
	return &UserHandler{db: db, logger: logger}
}

// userScope restricts q to the users p may see.
func userScope(q *gorm.DB, p *auth.SystemPrincipal) *gorm.DB {
	switch {
	case p.IsSuperAdmin:
		if p.TenantID != uuid.Nil {
			return q.Where("tenant_id = ? OR tenant_id IS NULL", p.TenantID)
		}
		return q
	case p.Role == models.RoleAdmin:
		return q.Where("tenant_id = ? AND (id = ? OR admin_id = ?)", p.TenantID, p.UserID, p.UserID)
	default:
		return q.Where("id = ?", p.UserID)
	}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetSystemPrincipal(r.Context())
	page := pagination(r)

	query := userScope(h.db.WithContext(r.Context()).Model(&models.User{}), p)
	if role := r.URL.Query().Get("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if p.IsSuperAdmin {
		if tenantID := queryID(r, "tenant_id"); tenantID != nil {
			query = query.Where("tenant_id = ?", *tenantID)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}

	var users []models.User
	if err := query.Order("created_at ASC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&users).Error; err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, paginated(users, total, page))
}

func (h *UserHandler) load(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	p := middleware.GetSystemPrincipal(r.Context())

	var user models.User
	if err := userScope(h.db.WithContext(r.Context()), p).First(&user, "id = ?", id).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "user"))
		return nil, false
	}
	return &user, true
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	p := middleware.GetSystemPrincipal(r.Context())

	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Role:     models.Role(req.Role),
		IsActive: true,
	}

	if p.IsSuperAdmin {
		tenantID := p.TenantID
		if id := optionalID(req.TenantID); id != nil {
			tenantID = *id
		}
		if tenantID == uuid.Nil {
			respondError(w, r, h.logger, apperr.Validation("Validation failed", map[string]string{"tenant_id": "tenant_id is required"}))
			return
		}
		user.TenantID = &tenantID

		if user.Role == models.RoleManager {
			adminID := optionalID(req.AdminID)
			if adminID == nil {
				respondError(w, r, h.logger, errManagerNeedsAdmin)
				return
			}
			var admin models.User
			if err := h.db.WithContext(r.Context()).
				Where("id = ? AND role = ? AND tenant_id = ?", *adminID, models.RoleAdmin, tenantID).
				First(&admin).Error; err != nil {
				respondError(w, r, h.logger, dbError(err, "admin"))
				return
			}
			user.AdminID = adminID
		}
	} else {
		if user.Role != models.RoleManager {
			respondError(w, r, h.logger, errAdminCreatesManagers)
			return
		}
		tenantID, adminID := p.TenantID, p.UserID
		user.TenantID = &tenantID
		user.AdminID = &adminID
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, h.logger, apperr.Internal(err))
		return
	}
	user.PasswordHash = hash

	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		respondError(w, r, h.logger, dbError(err, "user"))
		return
	}

	h.logger.Info("user created", "user_id", user.ID, "role", user.Role, "created_by", p.UserID)
	writeJSON(w, http.StatusCreated, user)
}

// Update handles PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	p := middleware.GetSystemPrincipal(r.Context())

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		if user.ID == p.UserID && !*req.IsActive {
			respondError(w, r, h.logger, apperr.Conflict("you cannot deactivate your own account"))
			return
		}
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			respondError(w, r, h.logger, apperr.Internal(err))
			return
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(r.Context()).Model(user).Updates(updates).Error; err != nil {
			respondError(w, r, h.logger, dbError(err, "user"))
			return
		}
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}. Attendants of a removed
// manager fall back to the manager's admin.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	p := middleware.GetSystemPrincipal(r.Context())
	if user.ID == p.UserID {
		respondError(w, r, h.logger, errDeleteSelf)
		return
	}

	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if user.Role == models.RoleManager {
			if err := tx.Model(&models.Attendant{}).
				Where("manager_id = ?", user.ID).
				Updates(map[string]interface{}{"manager_id": nil, "admin_id": user.AdminID}).Error; err != nil {
				return apperr.Internal(err)
			}
		}
		if err := tx.Delete(user).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user deleted", "user_id", user.ID, "deleted_by", p.UserID)
	w.WriteHeader(http.StatusNoContent)
}
