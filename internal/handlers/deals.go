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

// DealHandler manages the sales pipeline.
type DealHandler struct {
	db *gorm.DB
}

func NewDealHandler(db *gorm.DB) *DealHandler {
	return &DealHandler{db: db}
}

var dealFilterSchema = filters.Schema{
	"user_id":     filters.KindIdentifier,
	"company_id":  filters.KindIdentifier,
	"lead_id":     filters.KindIdentifier,
	"title":       filters.KindText,
	"stage":       filters.KindEnum,
	"currency":    filters.KindEnum,
	"value":       filters.KindNumeric,
	"probability": filters.KindInteger,
	"is_active":   filters.KindBoolean,
}

type dealRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=255"`
	Description string  `json:"description" validate:"max=2000"`
	Value       float64 `json:"value" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	Probability int     `json:"probability" validate:"gte=0,lte=100"`
	CompanyID   *string `json:"company_id" validate:"omitempty,uuid4"`
}

type updateDealRequest struct {
	Title           *string           `json:"title" validate:"omitempty,min=2,max=255"`
	Description     *string           `json:"description" validate:"omitempty,max=2000"`
	Stage           *models.DealStage `json:"stage"`
	Value           *float64          `json:"value" validate:"omitempty,gte=0"`
	Probability     *int              `json:"probability" validate:"omitempty,gte=0,lte=100"`
	ExpectedCloseAt *time.Time        `json:"expected_close_at"`
	IsActive        *bool             `json:"is_active"`
}

// GET /api/deals
func (h *DealHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Deal{})
	query = filters.Apply(query, dealFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var deals []models.Deal
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&deals).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, deals, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/deals/:id
func (h *DealHandler) Get(c *gin.Context) {
	var deal models.Deal
	if err := h.db.WithContext(requestContext(c)).First(&deal, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, deal)
}

// POST /api/deals
func (h *DealHandler) Create(c *gin.Context) {
	var body dealRequest
	if !bindAndValidate(c, &body) {
		return
	}

	deal := models.Deal{
		UserID:      currentUserID(c),
		Title:       strings.TrimSpace(body.Title),
		Description: strings.TrimSpace(body.Description),
		Stage:       models.DealStageOpen,
		Value:       body.Value,
		Currency:    strings.ToUpper(body.Currency),
		Probability: body.Probability,
		CompanyID:   body.CompanyID,
		IsActive:    true,
	}
	if deal.Currency == "" {
		deal.Currency = "CZK"
	}
	if err := h.db.WithContext(requestContext(c)).Create(&deal).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusCreated, deal)
}

// PATCH /api/deals/:id
func (h *DealHandler) Update(c *gin.Context) {
	var body updateDealRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Stage != nil && !body.Stage.Valid() {
		response.Error(c, errors.NewBadRequest("unknown deal stage"))
		return
	}

	var deal models.Deal
	if err := h.db.WithContext(requestContext(c)).First(&deal, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Title != nil {
		updates["title"] = strings.TrimSpace(*body.Title)
	}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.Stage != nil {
		updates["stage"] = *body.Stage
		// Closing stages timestamp the deal exactly once.
		if (*body.Stage == models.DealStageWon || *body.Stage == models.DealStageLost) && deal.ClosedAt == nil {
			updates["closed_at"] = time.Now()
		}
	}
	if body.Value != nil {
		updates["value"] = *body.Value
	}
	if body.Probability != nil {
		updates["probability"] = *body.Probability
	}
	if body.ExpectedCloseAt != nil {
		updates["expected_close_at"] = *body.ExpectedCloseAt
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&deal).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, deal)
}
