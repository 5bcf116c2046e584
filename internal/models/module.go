package models

// Module names a protected capability domain, e.g. "invoices" or "users".
// Inactive modules are treated as non-existent by the authorization resolver.
type Module struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string `gorm:"size:500" json:"description"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`
}
