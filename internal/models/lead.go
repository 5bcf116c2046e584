package models

import "time"

// LeadStatus tracks a lead through the qualification funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusProposal  LeadStatus = "proposal"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
		LeadStatusProposal, LeadStatusConverted, LeadStatusWon, LeadStatusLost:
		return true
	}
	return false
}

// Lead is an unqualified sales opportunity owned by a user.
type Lead struct {
	BaseModel

	UserID      string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string     `gorm:"not null;index;size:255" json:"title"`
	Description string     `gorm:"size:2000" json:"description"`
	Status      LeadStatus `gorm:"not null;default:new;index;size:20" json:"status"`

	Value    float64 `gorm:"default:0" json:"value"`
	Currency string  `gorm:"size:3;default:CZK" json:"currency"`

	CompanyID     *string `gorm:"type:uuid;index" json:"company_id"`
	CompanyName   string  `gorm:"size:255" json:"company_name"`
	ContactPerson string  `gorm:"size:255" json:"contact_person"`
	Email         string  `gorm:"size:255;index" json:"email"`
	Phone         string  `gorm:"size:50" json:"phone"`
	Source        string  `gorm:"size:100" json:"source"`

	IsQualified bool `gorm:"default:false" json:"is_qualified"`
	IsActive    bool `gorm:"default:true;index" json:"is_active"`

	ConvertedAt       *time.Time `json:"converted_at"`
	ConvertedToDealID *string    `gorm:"type:uuid" json:"converted_to_deal_id"`
}
