package models

// Company is a customer account that leads, deals and invoices attach to.
type Company struct {
	BaseModel

	Name string `gorm:"not null;index;size:255" json:"name"`
	// ICO and DIC are the Czech company/tax registration numbers.
	ICO string `gorm:"size:20;index" json:"ico"`
	DIC string `gorm:"size:20" json:"dic"`

	Email string `gorm:"size:255" json:"email"`
	Phone string `gorm:"size:50" json:"phone"`
	City  string `gorm:"column:address_city;size:100" json:"address_city"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`
}
