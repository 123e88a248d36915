package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken stores only the sha256 of the token mailed to the user.
type PasswordResetToken struct {
	Base
	PrincipalType PrincipalType `gorm:"not null" json:"principal_type"`
	PrincipalID   uuid.UUID     `gorm:"type:uuid;index;not null" json:"principal_id"`
	TokenHash     string        `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt     time.Time     `gorm:"not null;index" json:"expires_at"`
	UsedAt        *time.Time    `json:"used_at,omitempty"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
