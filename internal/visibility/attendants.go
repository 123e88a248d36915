package visibility

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/hierarchy"
	"gorm.io/gorm"
)

// AttendantScope restricts attendant listings. Admins also see attendants
// not yet placed under any admin or manager so they can adopt them.
type AttendantScope struct {
	Kind     Kind
	TenantID uuid.UUID
	SelfID   uuid.UUID
	Managers []uuid.UUID
}

func (s AttendantScope) Apply(db *gorm.DB) *gorm.DB {
	switch s.Kind {
	case KindAll:
		return db
	case KindTenantHierarchy:
		return db.Where("attendants.tenant_id = ?", s.TenantID).
			Where("(attendants.admin_id = ? OR attendants.manager_id IN ? OR (attendants.admin_id IS NULL AND attendants.manager_id IS NULL))",
				s.SelfID, nonEmpty(s.Managers))
	case KindAttendantSet:
		return db.Where("attendants.tenant_id = ? AND attendants.manager_id = ?", s.TenantID, s.SelfID)
	case KindSelf:
		return db.Where("attendants.id = ?", s.SelfID)
	default:
		return db.Where("1 = 0")
	}
}

func (s AttendantScope) Allows(a *models.Attendant) bool {
	switch s.Kind {
	case KindAll:
		return true
	case KindTenantHierarchy:
		if a.TenantID != s.TenantID {
			return false
		}
		if a.AdminID != nil && *a.AdminID == s.SelfID {
			return true
		}
		if a.ManagerID != nil && hierarchy.Contains(s.Managers, *a.ManagerID) {
			return true
		}
		return a.AdminID == nil && a.ManagerID == nil
	case KindAttendantSet:
		return a.TenantID == s.TenantID && a.ManagerID != nil && *a.ManagerID == s.SelfID
	case KindSelf:
		return a.ID == s.SelfID
	default:
		return false
	}
}

func (r *Resolver) AttendantScope(ctx context.Context, p auth.Principal) (AttendantScope, error) {
	switch p := p.(type) {
	case *auth.SystemPrincipal:
		if p.IsSuperAdmin || p.Role == models.RoleSuperAdmin {
			return AttendantScope{Kind: KindAll}, nil
		}
		if p.TenantID == uuid.Nil {
			return AttendantScope{Kind: KindDeny}, nil
		}
		switch p.Role {
		case models.RoleAdmin:
			managers, err := r.graph.ManagersOf(ctx, p.UserID)
			if err != nil {
				return AttendantScope{Kind: KindDeny}, err
			}
			return AttendantScope{Kind: KindTenantHierarchy, TenantID: p.TenantID, SelfID: p.UserID, Managers: managers}, nil
		case models.RoleManager:
			return AttendantScope{Kind: KindAttendantSet, TenantID: p.TenantID, SelfID: p.UserID}, nil
		}
	case *auth.AttendantPrincipal:
		return AttendantScope{Kind: KindSelf, TenantID: p.TenantID, SelfID: p.AttendantID}, nil
	}
	return AttendantScope{Kind: KindDeny}, nil
}
