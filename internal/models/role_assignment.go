package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleAssignment links a user to a role. The (user, role) pair is unique and
// rows are removed when either endpoint is deleted.
type RoleAssignment struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_role" json:"role_id"`

	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"role,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *RoleAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
