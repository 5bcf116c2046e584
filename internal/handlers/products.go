package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/filters"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// ProductHandler manages the product and service catalogue.
type ProductHandler struct {
	db *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

var productFilterSchema = filters.Schema{
	"name":        filters.KindText,
	"code":        filters.KindIdentifier,
	"ean":         filters.KindIdentifier,
	"description": filters.KindText,
	"category":    filters.KindEnum,
	"currency":    filters.KindEnum,
	"unit":        filters.KindEnum,
	"price":       filters.KindNumeric,
	"tax_rate":    filters.KindNumeric,
	"cost":        filters.KindNumeric,
	"is_active":   filters.KindBoolean,
	"is_featured": filters.KindBoolean,
}

type createProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=255"`
	Code        string  `json:"code" validate:"max=50"`
	EAN         string  `json:"ean" validate:"max=20"`
	Description string  `json:"description" validate:"max=2000"`
	Unit        string  `json:"unit" validate:"max=20"`
	Price       float64 `json:"price" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	TaxRate     float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	Category    string  `json:"category" validate:"max=100"`
	IsFeatured  bool    `json:"is_featured"`
	Notes       string  `json:"notes" validate:"max=2000"`
}

type updateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=2,max=255"`
	Code        *string  `json:"code" validate:"omitempty,max=50"`
	EAN         *string  `json:"ean" validate:"omitempty,max=20"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Unit        *string  `json:"unit" validate:"omitempty,max=20"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency    *string  `json:"currency" validate:"omitempty,len=3"`
	TaxRate     *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	Cost        *float64 `json:"cost" validate:"omitempty,gte=0"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	IsActive    *bool    `json:"is_active"`
	IsFeatured  *bool    `json:"is_featured"`
	Notes       *string  `json:"notes" validate:"omitempty,max=2000"`
}

// GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Product{})
	query = filters.Apply(query, productFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var products []models.Product
	if err := query.Order("is_featured DESC, name ASC").Offset(skip).Limit(limit).Find(&products).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, products, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/products/categories
func (h *ProductHandler) Categories(c *gin.Context) {
	var categories []string
	err := h.db.WithContext(requestContext(c)).
		Model(&models.Product{}).
		Where("category <> '' AND is_active = ?", true).
		Distinct().
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	var product models.Product
	if err := h.db.WithContext(requestContext(c)).First(&product, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// GET /api/products/:id/as-item
//
// Snapshots the product as a document line so clients can prefill deal and
// invoice forms. Inactive products cannot be placed on new documents.
func (h *ProductHandler) AsItem(c *gin.Context) {
	var product models.Product
	err := h.db.WithContext(requestContext(c)).
		First(&product, "id = ? AND is_active = ?", c.Param("id"), true).Error
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	quantity, err := strconv.ParseFloat(c.DefaultQuery("quantity", "1"), 64)
	if err != nil || quantity <= 0 {
		quantity = 1
	}
	response.Success(c, http.StatusOK, product.AsItem(quantity))
}

// POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	var body createProductRequest
	if !bindAndValidate(c, &body) {
		return
	}

	product := models.Product{
		Name:        strings.TrimSpace(body.Name),
		Code:        strings.TrimSpace(body.Code),
		EAN:         strings.TrimSpace(body.EAN),
		Description: body.Description,
		Unit:        strings.TrimSpace(body.Unit),
		Price:       body.Price,
		Currency:    strings.ToUpper(strings.TrimSpace(body.Currency)),
		TaxRate:     body.TaxRate,
		Cost:        body.Cost,
		Category:    strings.TrimSpace(body.Category),
		IsActive:    true,
		IsFeatured:  body.IsFeatured,
		Notes:       body.Notes,
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if product.Currency == "" {
		product.Currency = "CZK"
	}
	if err := h.db.WithContext(requestContext(c)).Create(&product).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusCreated, product)
}

// PATCH /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var body updateProductRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var product models.Product
	if err := h.db.WithContext(requestContext(c)).First(&product, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Code != nil {
		updates["code"] = strings.TrimSpace(*body.Code)
	}
	if body.EAN != nil {
		updates["ean"] = strings.TrimSpace(*body.EAN)
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.Unit != nil {
		updates["unit"] = strings.TrimSpace(*body.Unit)
	}
	if body.Price != nil {
		updates["price"] = *body.Price
	}
	if body.Currency != nil {
		updates["currency"] = strings.ToUpper(strings.TrimSpace(*body.Currency))
	}
	if body.TaxRate != nil {
		updates["tax_rate"] = *body.TaxRate
	}
	if body.Cost != nil {
		updates["cost"] = *body.Cost
	}
	if body.Category != nil {
		updates["category"] = strings.TrimSpace(*body.Category)
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if body.IsFeatured != nil {
		updates["is_featured"] = *body.IsFeatured
	}
	if body.Notes != nil {
		updates["notes"] = *body.Notes
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&product).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, product)
}

// DELETE /api/products/:id
//
// Removes the product from the catalogue. Deactivation is the default so
// documents referencing the product keep resolving; permanent=true deletes
// the row.
func (h *ProductHandler) Delete(c *gin.Context) {
	var product models.Product
	if err := h.db.WithContext(requestContext(c)).First(&product, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	if c.Query("permanent") == "true" {
		if err := h.db.WithContext(requestContext(c)).Delete(&product).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.db.WithContext(requestContext(c)).Model(&product).Update("is_active", false).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	c.Status(http.StatusNoContent)
}
