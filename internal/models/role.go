package models

// Role groups module grants. An inactive role confers no permissions even
// while its grant rows remain in place.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string `gorm:"size:500" json:"description"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`

	Grants []ModuleGrant `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"grants,omitempty"`
}
