package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApiLog is the audit record written once per non-excluded request.
// Rows are append-only; nothing in the application updates them.
type ApiLog struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	RequestID string `gorm:"size:64;index" json:"request_id"`
	IPAddress string `gorm:"size:45;not null;index" json:"ip_address"`
	Path      string `gorm:"size:500;not null;index" json:"path"`
	Method    string `gorm:"size:10;not null;index" json:"method"`

	StatusCode int `gorm:"not null;index" json:"status_code"`

	RequestBody  datatypes.JSON `json:"request_body,omitempty"`
	ResponseBody datatypes.JSON `json:"response_body,omitempty"`
	QueryParams  datatypes.JSON `json:"query_params,omitempty"`
	PathParams   datatypes.JSON `json:"path_params,omitempty"`

	// ProcessTime is the handler round trip in seconds.
	ProcessTime float64 `gorm:"not null;index" json:"process_time"`

	UserID *string `gorm:"size:100;index" json:"user_id"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (l *ApiLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
