package models

import "github.com/google/uuid"

type OrgUnitKind string

const (
	OrgUnitDepartment OrgUnitKind = "department"
	OrgUnitPosition   OrgUnitKind = "position"
	OrgUnitFunction   OrgUnitKind = "function"
)

// OrgUnit backs departments, positions and functions, which share a shape.
type OrgUnit struct {
	Base
	TenantID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Kind        OrgUnitKind `gorm:"not null;index" json:"kind"`
	Name        string      `gorm:"not null" json:"name"`
	Description string      `json:"description,omitempty"`
	IsActive    bool        `gorm:"not null" json:"is_active"`
}

func (OrgUnit) TableName() string {
	return "org_units"
}
