package auth

import (
	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/database/models"
)

// Principal is the authenticated actor behind a request. It is either a
// *SystemPrincipal or an *AttendantPrincipal; no other implementations exist.
type Principal interface {
	ID() uuid.UUID
	Tenant() uuid.UUID
	Type() models.PrincipalType
	principal()
}

// SystemPrincipal is a back-office user: super admin, admin or manager.
// Tenant is uuid.Nil for a super admin without a tenant.
type SystemPrincipal struct {
	UserID       uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenant_id"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	IsSuperAdmin bool        `json:"is_super_admin"`
}

func (p *SystemPrincipal) ID() uuid.UUID              { return p.UserID }
func (p *SystemPrincipal) Tenant() uuid.UUID          { return p.TenantID }
func (p *SystemPrincipal) Type() models.PrincipalType { return models.PrincipalUser }
func (*SystemPrincipal) principal()                   {}

// HasRole reports whether the principal holds one of roles. Super admins
// match every role check.
func (p *SystemPrincipal) HasRole(roles ...models.Role) bool {
	if p.IsSuperAdmin || p.Role == models.RoleSuperAdmin {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type AttendantPrincipal struct {
	AttendantID uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
}

func (p *AttendantPrincipal) ID() uuid.UUID              { return p.AttendantID }
func (p *AttendantPrincipal) Tenant() uuid.UUID          { return p.TenantID }
func (p *AttendantPrincipal) Type() models.PrincipalType { return models.PrincipalAttendant }
func (*AttendantPrincipal) principal()                   {}

func NewSystemPrincipal(u *models.User) *SystemPrincipal {
	p := &SystemPrincipal{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		IsSuperAdmin: u.IsSuperAdmin(),
	}
	if u.TenantID != nil {
		p.TenantID = *u.TenantID
	}
	return p
}

func NewAttendantPrincipal(a *models.Attendant) *AttendantPrincipal {
	return &AttendantPrincipal{
		AttendantID: a.ID,
		TenantID:    a.TenantID,
		Email:       a.Email,
		Name:        a.Name,
	}
}
