package models

import "github.com/google/uuid"

type Setting struct {
	Base
	TenantID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_settings_tenant_key;not null" json:"tenant_id"`
	Key      string    `gorm:"uniqueIndex:idx_settings_tenant_key;not null" json:"key"`
	Value    string    `gorm:"type:text" json:"-"` // age ciphertext when IsSecret
	IsSecret bool      `gorm:"not null" json:"is_secret"`
}

func (Setting) TableName() string {
	return "settings"
}
