package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/services"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// AuditHandler exposes the request audit trail.
type AuditHandler struct {
	service *services.AuditService
}

func NewAuditHandler(db *gorm.DB) (*AuditHandler, error) {
	svc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &AuditHandler{service: svc}, nil
}

// GET /api/audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	filters := services.AuditFilters{
		Path:       strings.TrimSpace(c.Query("path")),
		Method:     strings.TrimSpace(c.Query("method")),
		StatusCode: parseIntQuery(c, "status_code", 0),
		UserID:     strings.TrimSpace(c.Query("user_id")),
		RequestID:  strings.TrimSpace(c.Query("request_id")),
	}
	if since, ok := parseTimeQuery(c, "since"); ok {
		filters.Since = &since
	}
	if until, ok := parseTimeQuery(c, "until"); ok {
		filters.Until = &until
	}

	records, total, err := h.service.List(requestContext(c), services.AuditListOptions{
		Skip:    skip,
		Limit:   limit,
		Filters: filters,
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, records, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
