package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/filters"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// ModuleHandler manages the protected module catalogue.
type ModuleHandler struct {
	db *gorm.DB
}

func NewModuleHandler(db *gorm.DB) *ModuleHandler {
	return &ModuleHandler{db: db}
}

var moduleFilterSchema = filters.Schema{
	"name":      filters.KindIdentifier,
	"is_active": filters.KindBoolean,
}

type moduleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateModuleRequest struct {
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// GET /api/modules
func (h *ModuleHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Module{})
	query = filters.Apply(query, moduleFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var modules []models.Module
	if err := query.Order("name").Offset(skip).Limit(limit).Find(&modules).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, modules, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/modules/:id
func (h *ModuleHandler) Get(c *gin.Context) {
	var module models.Module
	if err := h.db.WithContext(requestContext(c)).First(&module, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, module)
}

// POST /api/modules
func (h *ModuleHandler) Create(c *gin.Context) {
	var body moduleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	module := models.Module{
		Name:        strings.ToLower(strings.TrimSpace(body.Name)),
		Description: strings.TrimSpace(body.Description),
		IsActive:    true,
	}
	if err := h.db.WithContext(requestContext(c)).Create(&module).Error; err != nil {
		response.Error(c, errors.New("CONFLICT", "Module name already exists", http.StatusConflict))
		return
	}
	response.Success(c, http.StatusCreated, module)
}

// PATCH /api/modules/:id
//
// Deactivating a module takes effect on the next authorization check; there
// is no cache to invalidate.
func (h *ModuleHandler) Update(c *gin.Context) {
	var body updateModuleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var module models.Module
	if err := h.db.WithContext(requestContext(c)).First(&module, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&module).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, module)
}
