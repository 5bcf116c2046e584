package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/filters"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// LeadHandler manages the lead funnel, including conversion to deals.
type LeadHandler struct {
	db *gorm.DB
}

func NewLeadHandler(db *gorm.DB) *LeadHandler {
	return &LeadHandler{db: db}
}

var leadFilterSchema = filters.Schema{
	"user_id":      filters.KindIdentifier,
	"company_id":   filters.KindIdentifier,
	"title":        filters.KindText,
	"company_name": filters.KindText,
	"email":        filters.KindText,
	"source":       filters.KindText,
	"status":       filters.KindEnum,
	"currency":     filters.KindEnum,
	"value":        filters.KindNumeric,
	"is_qualified": filters.KindBoolean,
	"is_active":    filters.KindBoolean,
}

type leadRequest struct {
	Title         string  `json:"title" validate:"required,min=2,max=255"`
	Description   string  `json:"description" validate:"max=2000"`
	Value         float64 `json:"value" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	CompanyID     *string `json:"company_id" validate:"omitempty,uuid4"`
	CompanyName   string  `json:"company_name" validate:"max=255"`
	ContactPerson string  `json:"contact_person" validate:"max=255"`
	Email         string  `json:"email" validate:"omitempty,email"`
	Phone         string  `json:"phone" validate:"max=50"`
	Source        string  `json:"source" validate:"max=100"`
}

type updateLeadRequest struct {
	Title       *string            `json:"title" validate:"omitempty,min=2,max=255"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	Status      *models.LeadStatus `json:"status"`
	Value       *float64           `json:"value" validate:"omitempty,gte=0"`
	IsQualified *bool              `json:"is_qualified"`
	IsActive    *bool              `json:"is_active"`
}

// GET /api/leads
func (h *LeadHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Lead{})
	query = filters.Apply(query, leadFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&leads).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, leads, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	var lead models.Lead
	if err := h.db.WithContext(requestContext(c)).First(&lead, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// POST /api/leads
func (h *LeadHandler) Create(c *gin.Context) {
	var body leadRequest
	if !bindAndValidate(c, &body) {
		return
	}

	lead := models.Lead{
		UserID:        currentUserID(c),
		Title:         strings.TrimSpace(body.Title),
		Description:   strings.TrimSpace(body.Description),
		Status:        models.LeadStatusNew,
		Value:         body.Value,
		Currency:      strings.ToUpper(body.Currency),
		CompanyID:     body.CompanyID,
		CompanyName:   strings.TrimSpace(body.CompanyName),
		ContactPerson: strings.TrimSpace(body.ContactPerson),
		Email:         strings.ToLower(strings.TrimSpace(body.Email)),
		Phone:         strings.TrimSpace(body.Phone),
		Source:        strings.TrimSpace(body.Source),
		IsActive:      true,
	}
	if lead.Currency == "" {
		lead.Currency = "CZK"
	}
	if err := h.db.WithContext(requestContext(c)).Create(&lead).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusCreated, lead)
}

// PATCH /api/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	var body updateLeadRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Status != nil && !body.Status.Valid() {
		response.Error(c, errors.NewBadRequest("unknown lead status"))
		return
	}

	var lead models.Lead
	if err := h.db.WithContext(requestContext(c)).First(&lead, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	if lead.Status == models.LeadStatusConverted {
		response.Error(c, errors.NewBadRequest("converted leads are read-only"))
		return
	}

	updates := map[string]any{}
	if body.Title != nil {
		updates["title"] = strings.TrimSpace(*body.Title)
	}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.Status != nil {
		updates["status"] = *body.Status
	}
	if body.Value != nil {
		updates["value"] = *body.Value
	}
	if body.IsQualified != nil {
		updates["is_qualified"] = *body.IsQualified
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&lead).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, lead)
}

// POST /api/leads/:id/convert
//
// Conversion creates the deal and marks the lead converted in one
// transaction so a crash cannot leave a half-converted lead.
func (h *LeadHandler) Convert(c *gin.Context) {
	ctx := requestContext(c)

	var lead models.Lead
	if err := h.db.WithContext(ctx).First(&lead, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	if lead.Status == models.LeadStatusConverted {
		response.Error(c, errors.NewBadRequest("lead is already converted"))
		return
	}
	if !lead.IsQualified {
		response.Error(c, errors.NewBadRequest("only qualified leads can be converted"))
		return
	}

	var deal models.Deal
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		deal = models.Deal{
			UserID:    lead.UserID,
			Title:     lead.Title,
			Stage:     models.DealStageOpen,
			Value:     lead.Value,
			Currency:  lead.Currency,
			CompanyID: lead.CompanyID,
			LeadID:    &lead.ID,
			IsActive:  true,
		}
		if err := tx.Create(&deal).Error; err != nil {
			return err
		}
		return tx.Model(&lead).Updates(map[string]any{
			"status":               models.LeadStatusConverted,
			"converted_at":         now,
			"converted_to_deal_id": deal.ID,
		}).Error
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusCreated, deal)
}
