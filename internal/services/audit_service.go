package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/models"
)

// AuditEntry captures one finished request to persist.
type AuditEntry struct {
	RequestID    string
	Method       string
	Path         string
	IPAddress    string
	StatusCode   int
	ProcessTime  float64
	QueryParams  any
	PathParams   any
	RequestBody  any
	ResponseBody any
	UserID       *string
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	Path       string
	Method     string
	StatusCode int
	UserID     string
	RequestID  string
	Since      *time.Time
	Until      *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Skip    int
	Limit   int
	Filters AuditFilters
}

// AuditService persists and retrieves request audit records.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Record stores a request record, marshalling the captured documents into
// JSON columns.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Method) == "" {
		return errors.New("audit service: method is required")
	}
	if strings.TrimSpace(entry.Path) == "" {
		return errors.New("audit service: path is required")
	}

	row := models.ApiLog{
		RequestID:   entry.RequestID,
		Method:      entry.Method,
		Path:        entry.Path,
		IPAddress:   entry.IPAddress,
		StatusCode:  entry.StatusCode,
		ProcessTime: entry.ProcessTime,
	}

	if entry.UserID != nil && strings.TrimSpace(*entry.UserID) != "" {
		id := strings.TrimSpace(*entry.UserID)
		row.UserID = &id
	}

	var err error
	if row.QueryParams, err = encodeDocument(entry.QueryParams); err != nil {
		return fmt.Errorf("audit service: marshal query params: %w", err)
	}
	if row.PathParams, err = encodeDocument(entry.PathParams); err != nil {
		return fmt.Errorf("audit service: marshal path params: %w", err)
	}
	if row.RequestBody, err = encodeDocument(entry.RequestBody); err != nil {
		return fmt.Errorf("audit service: marshal request body: %w", err)
	}
	if row.ResponseBody, err = encodeDocument(entry.ResponseBody); err != nil {
		return fmt.Errorf("audit service: marshal response body: %w", err)
	}

	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns paginated audit records ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.ApiLog, int64, error) {
	ctx = ensureContext(ctx)

	skip := opts.Skip
	if skip < 0 {
		skip = 0
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		results []models.ApiLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.ApiLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count records: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list records: %w", err)
	}

	return results, total, nil
}

// CleanupOlderThan deletes audit records created before the cutoff and
// returns how many rows were removed.
func (s *AuditService) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ApiLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.Path != "" {
		query = query.Where("path = ?", filters.Path)
	}
	if filters.Method != "" {
		query = query.Where("method = ?", strings.ToUpper(filters.Method))
	}
	if filters.StatusCode != 0 {
		query = query.Where("status_code = ?", filters.StatusCode)
	}
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.RequestID != "" {
		query = query.Where("request_id = ?", filters.RequestID)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

func encodeDocument(doc any) (datatypes.JSON, error) {
	if doc == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
