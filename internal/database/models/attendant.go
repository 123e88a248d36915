package models

import "github.com/google/uuid"

type Attendant struct {
	Base
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	LoginEnabled bool       `gorm:"not null" json:"login_enabled"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	TenantID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"tenant_id"`
	ManagerID    *uuid.UUID `gorm:"type:uuid;index" json:"manager_id,omitempty"`
	AdminID      *uuid.UUID `gorm:"type:uuid;index" json:"admin_id,omitempty"`

	DepartmentID *uuid.UUID `gorm:"type:uuid;index" json:"department_id,omitempty"`
	PositionID   *uuid.UUID `gorm:"type:uuid;index" json:"position_id,omitempty"`
	FunctionID   *uuid.UUID `gorm:"type:uuid;index" json:"function_id,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
}

func (Attendant) TableName() string {
	return "attendants"
}
