package models

import (
	"strings"

	"gorm.io/gorm"
)

type Tenant struct {
	Base
	Name     string  `gorm:"not null" json:"name"`
	Slug     string  `gorm:"uniqueIndex;not null" json:"slug"`
	Domain   *string `gorm:"uniqueIndex" json:"domain,omitempty"`
	IsActive bool    `gorm:"not null" json:"is_active"`

	Users []User `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// BeforeSave keeps slugs and domains lowercase so host matching is exact.
func (t *Tenant) BeforeSave(tx *gorm.DB) error {
	t.Slug = strings.ToLower(strings.TrimSpace(t.Slug))
	if t.Domain != nil {
		d := strings.ToLower(strings.TrimSpace(*t.Domain))
		if d == "" {
			t.Domain = nil
		} else {
			t.Domain = &d
		}
	}
	return nil
}
