package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/filters"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// InvoiceHandler manages invoices and their per-year sequential numbering.
type InvoiceHandler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewInvoiceHandler(db *gorm.DB) *InvoiceHandler {
	return &InvoiceHandler{db: db, now: time.Now}
}

var invoiceFilterSchema = filters.Schema{
	"user_id":    filters.KindIdentifier,
	"company_id": filters.KindIdentifier,
	"deal_id":    filters.KindIdentifier,
	"number":     filters.KindIdentifier,
	"status":     filters.KindEnum,
	"currency":   filters.KindEnum,
	"total":      filters.KindNumeric,
	"is_active":  filters.KindBoolean,
}

type invoiceRequest struct {
	CompanyID *string    `json:"company_id" validate:"omitempty,uuid4"`
	DealID    *string    `json:"deal_id" validate:"omitempty,uuid4"`
	Subtotal  float64    `json:"subtotal" validate:"gte=0"`
	Tax       float64    `json:"tax" validate:"gte=0"`
	Currency  string     `json:"currency" validate:"omitempty,len=3"`
	DueAt     *time.Time `json:"due_at"`
}

type updateInvoiceRequest struct {
	Status   *models.InvoiceStatus `json:"status"`
	Subtotal *float64              `json:"subtotal" validate:"omitempty,gte=0"`
	Tax      *float64              `json:"tax" validate:"omitempty,gte=0"`
	DueAt    *time.Time            `json:"due_at"`
	IsActive *bool                 `json:"is_active"`
}

// GET /api/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Invoice{})
	query = filters.Apply(query, invoiceFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var invoices []models.Invoice
	if err := query.Order("number DESC").Offset(skip).Limit(limit).Find(&invoices).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, invoices, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.WithContext(requestContext(c)).First(&invoice, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, invoice)
}

// POST /api/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var body invoiceRequest
	if !bindAndValidate(c, &body) {
		return
	}

	now := h.now()
	invoice := models.Invoice{
		Status:    models.InvoiceStatusDraft,
		UserID:    currentUserID(c),
		CompanyID: body.CompanyID,
		DealID:    body.DealID,
		Subtotal:  body.Subtotal,
		Tax:       body.Tax,
		Total:     body.Subtotal + body.Tax,
		Currency:  strings.ToUpper(body.Currency),
		IssuedAt:  now,
		IsActive:  true,
	}
	if invoice.Currency == "" {
		invoice.Currency = "CZK"
	}
	if body.DueAt != nil {
		invoice.DueAt = *body.DueAt
	} else {
		invoice.DueAt = now.AddDate(0, 0, 14)
	}

	err := h.db.WithContext(requestContext(c)).Transaction(func(tx *gorm.DB) error {
		number, err := nextInvoiceNumber(tx, now.Year())
		if err != nil {
			return err
		}
		invoice.Number = number
		return tx.Create(&invoice).Error
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusCreated, invoice)
}

// PATCH /api/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	var body updateInvoiceRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Status != nil && !body.Status.Valid() {
		response.Error(c, errors.NewBadRequest("unknown invoice status"))
		return
	}

	var invoice models.Invoice
	if err := h.db.WithContext(requestContext(c)).First(&invoice, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Status != nil {
		updates["status"] = *body.Status
		if *body.Status == models.InvoiceStatusPaid && invoice.PaidAt == nil {
			updates["paid_at"] = h.now()
		}
	}

	subtotal := invoice.Subtotal
	tax := invoice.Tax
	if body.Subtotal != nil {
		subtotal = *body.Subtotal
		updates["subtotal"] = subtotal
	}
	if body.Tax != nil {
		tax = *body.Tax
		updates["tax"] = tax
	}
	if body.Subtotal != nil || body.Tax != nil {
		updates["total"] = subtotal + tax
	}
	if body.DueAt != nil {
		updates["due_at"] = *body.DueAt
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&invoice).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, invoice)
}

// nextInvoiceNumber returns the next number in the year's sequence, e.g.
// "2026-0042". The caller must run it inside the insert transaction so
// concurrent creations serialise on the unique index instead of skipping.
func nextInvoiceNumber(tx *gorm.DB, year int) (string, error) {
	prefix := strconv.Itoa(year) + "-"

	var last models.Invoice
	err := tx.Where("number LIKE ?", prefix+"%").
		Order("number DESC").
		First(&last).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Sprintf("%s%04d", prefix, 1), nil
		}
		return "", err
	}

	sequence, err := strconv.Atoi(strings.TrimPrefix(last.Number, prefix))
	if err != nil {
		return "", fmt.Errorf("malformed invoice number %q: %w", last.Number, err)
	}
	return fmt.Sprintf("%s%04d", prefix, sequence+1), nil
}
