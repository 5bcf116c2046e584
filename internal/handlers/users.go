package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/filters"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// UserHandler manages API principals and their role assignments.
type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

var userFilterSchema = filters.Schema{
	"client_id": filters.KindIdentifier,
	"email":     filters.KindText,
	"is_active": filters.KindBoolean,
}

type createUserRequest struct {
	ClientID     string `json:"client_id" validate:"required,min=3,max=100"`
	ClientSecret string `json:"client_secret" validate:"required,min=8"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	IsActive *bool   `json:"is_active"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.User{})
	query = filters.Apply(query, userFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	var user models.User
	err := h.db.WithContext(requestContext(c)).
		Preload("Assignments.Role").
		First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	hash, err := iauth.HashPassword(body.ClientSecret)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	user := models.User{
		ClientID:   strings.TrimSpace(body.ClientID),
		SecretHash: hash,
		Email:      strings.ToLower(strings.TrimSpace(body.Email)),
		IsActive:   true,
	}
	if err := h.db.WithContext(requestContext(c)).Create(&user).Error; err != nil {
		response.Error(c, errors.New("CONFLICT", "Client ID or email already exists", http.StatusConflict))
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var body updateUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).First(&user, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*body.Email))
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) == 0 {
		response.Success(c, http.StatusOK, user)
		return
	}

	if err := h.db.WithContext(requestContext(c)).Model(&user).Updates(updates).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	result := h.db.WithContext(requestContext(c)).Delete(&models.User{}, "id = ?", c.Param("id"))
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

type assignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required,uuid4"`
}

// POST /api/users/:id/roles
func (h *UserHandler) AssignRole(c *gin.Context) {
	var body assignRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	ctx := requestContext(c)
	userID := c.Param("id")

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	var role models.Role
	if err := h.db.WithContext(ctx).First(&role, "id = ?", body.RoleID).Error; err != nil {
		response.Error(c, errors.NewNotFound("Role not found"))
		return
	}

	assignment := models.RoleAssignment{UserID: userID, RoleID: role.ID}
	if err := h.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		response.Error(c, errors.New("CONFLICT", "Role already assigned", http.StatusConflict))
		return
	}
	response.Success(c, http.StatusCreated, assignment)
}

// DELETE /api/users/:id/roles/:roleId
func (h *UserHandler) RevokeRole(c *gin.Context) {
	result := h.db.WithContext(requestContext(c)).
		Where("user_id = ? AND role_id = ?", c.Param("id"), c.Param("roleId")).
		Delete(&models.RoleAssignment{})
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
