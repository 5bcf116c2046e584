package models

import "time"

// DealStage tracks a deal through the sales pipeline.
type DealStage string

const (
	DealStageOpen        DealStage = "open"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageWon         DealStage = "won"
	DealStageLost        DealStage = "lost"
)

// Valid reports whether s is a known deal stage.
func (s DealStage) Valid() bool {
	switch s {
	case DealStageOpen, DealStageProposal, DealStageNegotiation, DealStageWon, DealStageLost:
		return true
	}
	return false
}

// Deal is a qualified opportunity, usually converted from a lead.
type Deal struct {
	BaseModel

	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `gorm:"not null;index;size:255" json:"title"`
	Description string    `gorm:"size:2000" json:"description"`
	Stage       DealStage `gorm:"not null;default:open;index;size:20" json:"stage"`

	Value       float64 `gorm:"default:0" json:"value"`
	Currency    string  `gorm:"size:3;default:CZK" json:"currency"`
	Probability int     `gorm:"default:0" json:"probability"`

	CompanyID *string `gorm:"type:uuid;index" json:"company_id"`
	LeadID    *string `gorm:"type:uuid;index" json:"lead_id"`

	ExpectedCloseAt *time.Time `json:"expected_close_at"`
	ClosedAt        *time.Time `json:"closed_at"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`
}
