package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an API principal identified by client_id. The secret hash is an
// Argon2id digest and is never serialised.
type User struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ClientID   string `gorm:"uniqueIndex;not null;size:100" json:"client_id"`
	SecretHash string `gorm:"column:client_secret;not null" json:"-"`
	Email      string `gorm:"uniqueIndex;size:255" json:"email"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	Assignments []RoleAssignment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
