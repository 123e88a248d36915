package models

import (
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	Base
	TenantID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name          string        `gorm:"not null" json:"name"`
	Email         string        `gorm:"index" json:"email,omitempty"`
	Phone         string        `gorm:"index" json:"phone,omitempty"`
	Company       string        `json:"company,omitempty"`
	Source        string        `json:"source,omitempty"`
	Status        string        `gorm:"index" json:"status"`
	Notes         string        `json:"notes,omitempty"`
	Value         float64       `json:"value"`
	ColumnID      *uuid.UUID    `gorm:"type:uuid;index" json:"column_id,omitempty"`
	AttendantID   *uuid.UUID    `gorm:"type:uuid;index" json:"attendant_id,omitempty"`
	CreatedByID   *uuid.UUID    `gorm:"type:uuid;index" json:"created_by_id,omitempty"`
	CreatedByType PrincipalType `json:"created_by_type,omitempty"`
	Position      int           `gorm:"not null;default:0" json:"position"`
	DeletedBy     *uuid.UUID    `gorm:"type:uuid" json:"deleted_by,omitempty"`

	Attendant *Attendant `gorm:"foreignKey:AttendantID" json:"attendant,omitempty"`
	Column    *Column    `gorm:"foreignKey:ColumnID" json:"-"`
}

func (Lead) TableName() string {
	return "leads"
}

// IsDeleted reports whether the lead sits in the trash.
func (l *Lead) IsDeleted() bool {
	return l.DeletedAt.Valid
}

// DeletedTime exposes the soft-delete timestamp for trash listings.
func (l *Lead) DeletedTime() *time.Time {
	if !l.DeletedAt.Valid {
		return nil
	}
	t := l.DeletedAt.Time
	return &t
}

