package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AttendanceStatus string

const (
	AttendanceScheduled AttendanceStatus = "scheduled"
	AttendanceCompleted AttendanceStatus = "completed"
	AttendanceCancelled AttendanceStatus = "cancelled"
)

// Attendance is one interaction logged against a lead. Attendances are
// removed permanently rather than trashed.
type Attendance struct {
	Base
	LeadID      uuid.UUID        `gorm:"type:uuid;index;not null" json:"lead_id"`
	UserID      *uuid.UUID       `gorm:"type:uuid;index" json:"user_id,omitempty"`
	AttendantID *uuid.UUID       `gorm:"type:uuid;index" json:"attendant_id,omitempty"`
	Type        string           `gorm:"not null" json:"type"` // call, email, meeting, whatsapp, note
	Subject     string           `json:"subject,omitempty"`
	Description string           `json:"description,omitempty"`
	Status      AttendanceStatus `gorm:"not null" json:"status"`
	Priority    string           `json:"priority,omitempty"`
	ScheduledAt *time.Time       `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Outcome     string           `json:"outcome,omitempty"`
	NextAction  string           `json:"next_action,omitempty"`
	Tags        datatypes.JSON   `json:"tags,omitempty"`

	Lead *Lead `gorm:"foreignKey:LeadID" json:"-"`
}

func (Attendance) TableName() string {
	return "attendances"
}
