package models

import "github.com/google/uuid"

// Column is one stage of a tenant's kanban board. Soft-deleting a column
// cascades to the leads it holds.
type Column struct {
	Base
	TenantID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Title     string     `gorm:"not null" json:"title"`
	Position  int        `gorm:"not null;index" json:"position"`
	Color     string     `json:"color,omitempty"`
	DeletedBy *uuid.UUID `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

func (Column) TableName() string {
	return "kanban_columns"
}
