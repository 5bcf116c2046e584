package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModuleGrant gives a role one permission on one module. The
// (role, module, permission) triple is unique; no grant implies another.
type ModuleGrant struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	RoleID     string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_role_module_permission" json:"role_id"`
	ModuleID   string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_role_module_permission" json:"module_id"`
	Permission Permission `gorm:"not null;size:16;index;uniqueIndex:idx_role_module_permission" json:"permission"`

	Module Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"module,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (g *ModuleGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
