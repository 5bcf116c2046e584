package models

import "time"

// InvoiceStatus tracks an invoice from draft to payment.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice carries a per-year sequential number, e.g. "2026-0042".
type Invoice struct {
	BaseModel

	Number string        `gorm:"uniqueIndex;not null;size:20" json:"number"`
	Status InvoiceStatus `gorm:"not null;default:draft;index;size:20" json:"status"`

	UserID    string  `gorm:"type:uuid;not null;index" json:"user_id"`
	CompanyID *string `gorm:"type:uuid;index" json:"company_id"`
	DealID    *string `gorm:"type:uuid;index" json:"deal_id"`

	// Price fields are plain arithmetic: total = subtotal + tax.
	Subtotal float64 `gorm:"default:0" json:"subtotal"`
	Tax      float64 `gorm:"default:0" json:"tax"`
	Total    float64 `gorm:"default:0;index" json:"total"`
	Currency string  `gorm:"size:3;default:CZK" json:"currency"`

	IssuedAt time.Time  `json:"issued_at"`
	DueAt    time.Time  `json:"due_at"`
	PaidAt   *time.Time `json:"paid_at"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`
}
