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

// RoleHandler manages roles and their module grants.
type RoleHandler struct {
	db *gorm.DB
}

func NewRoleHandler(db *gorm.DB) *RoleHandler {
	return &RoleHandler{db: db}
}

var roleFilterSchema = filters.Schema{
	"name":      filters.KindText,
	"is_active": filters.KindBoolean,
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Role{})
	query = filters.Apply(query, roleFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var roles []models.Role
	if err := query.Order("name").Offset(skip).Limit(limit).Find(&roles).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, roles, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	var role models.Role
	err := h.db.WithContext(requestContext(c)).
		Preload("Grants.Module").
		First(&role, "id = ?", c.Param("id")).Error
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body roleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role := models.Role{
		Name:        strings.TrimSpace(body.Name),
		Description: strings.TrimSpace(body.Description),
		IsActive:    true,
	}
	if err := h.db.WithContext(requestContext(c)).Create(&role).Error; err != nil {
		response.Error(c, errors.New("CONFLICT", "Role name already exists", http.StatusConflict))
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body updateRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var role models.Role
	if err := h.db.WithContext(requestContext(c)).First(&role, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&role).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	result := h.db.WithContext(requestContext(c)).Delete(&models.Role{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	if result.RowsAffected == 0 {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type grantRequest struct {
	ModuleID   string            `json:"module_id" validate:"required,uuid4"`
	Permission models.Permission `json:"permission" validate:"required"`
}

// POST /api/roles/:id/grants
func (h *RoleHandler) Grant(c *gin.Context) {
	var body grantRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if !body.Permission.Valid() {
		response.Error(c, errors.NewBadRequest("permission must be one of read, write, admin"))
		return
	}

	ctx := requestContext(c)

	var role models.Role
	if err := h.db.WithContext(ctx).First(&role, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	var module models.Module
	if err := h.db.WithContext(ctx).First(&module, "id = ?", body.ModuleID).Error; err != nil {
		response.Error(c, errors.NewNotFound("Module not found"))
		return
	}

	grant := models.ModuleGrant{RoleID: role.ID, ModuleID: module.ID, Permission: body.Permission}
	if err := h.db.WithContext(ctx).Create(&grant).Error; err != nil {
		response.Error(c, errors.New("CONFLICT", "Grant already exists", http.StatusConflict))
		return
	}
	response.Success(c, http.StatusCreated, grant)
}

// DELETE /api/roles/:id/grants/:grantId
func (h *RoleHandler) Revoke(c *gin.Context) {
	result := h.db.WithContext(requestContext(c)).
		Where("id = ? AND role_id = ?", c.Param("grantId"), c.Param("id")).
		Delete(&models.ModuleGrant{})
	if result.Error != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	if result.RowsAffected == 0 {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
