package models

import "github.com/google/uuid"

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// User is a system principal. Super admins have no tenant; managers always
// belong to an admin.
type User struct {
	Base
	Email        string     `gorm:"uniqueIndex:idx_users_tenant_email;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `gorm:"not null" json:"name"`
	Role         Role       `gorm:"not null;index" json:"role"`
	TenantID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_users_tenant_email" json:"tenant_id,omitempty"`
	AdminID      *uuid.UUID `gorm:"type:uuid;index" json:"admin_id,omitempty"`
	IsActive     bool       `gorm:"not null" json:"is_active"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}
