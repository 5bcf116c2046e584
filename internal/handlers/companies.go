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

// CompanyHandler manages customer accounts.
type CompanyHandler struct {
	db *gorm.DB
}

func NewCompanyHandler(db *gorm.DB) *CompanyHandler {
	return &CompanyHandler{db: db}
}

var companyFilterSchema = filters.Schema{
	"name":         filters.KindText,
	"ico":          filters.KindIdentifier,
	"dic":          filters.KindIdentifier,
	"email":        filters.KindText,
	"address_city": filters.KindText,
	"is_active":    filters.KindBoolean,
}

type companyRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=255"`
	ICO   string `json:"ico" validate:"max=20"`
	DIC   string `json:"dic" validate:"max=20"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"max=50"`
	City  string `json:"address_city" validate:"max=100"`
}

type updateCompanyRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=255"`
	ICO      *string `json:"ico" validate:"omitempty,max=20"`
	DIC      *string `json:"dic" validate:"omitempty,max=20"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	City     *string `json:"address_city" validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}

// GET /api/companies
func (h *CompanyHandler) List(c *gin.Context) {
	skip, limit := pagination(c)

	query := h.db.WithContext(requestContext(c)).Model(&models.Company{})
	query = filters.Apply(query, companyFilterSchema, filters.ParseQuery(c.Request.URL.Query()))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	var companies []models.Company
	if err := query.Order("name").Offset(skip).Limit(limit).Find(&companies).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, companies, &response.Meta{Skip: skip, Limit: limit, Total: total})
}

// GET /api/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	var company models.Company
	if err := h.db.WithContext(requestContext(c)).First(&company, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, company)
}

// POST /api/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var body companyRequest
	if !bindAndValidate(c, &body) {
		return
	}

	company := models.Company{
		Name:     strings.TrimSpace(body.Name),
		ICO:      strings.TrimSpace(body.ICO),
		DIC:      strings.TrimSpace(body.DIC),
		Email:    strings.ToLower(strings.TrimSpace(body.Email)),
		Phone:    strings.TrimSpace(body.Phone),
		City:     strings.TrimSpace(body.City),
		IsActive: true,
	}
	if err := h.db.WithContext(requestContext(c)).Create(&company).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusCreated, company)
}

// PATCH /api/companies/:id
func (h *CompanyHandler) Update(c *gin.Context) {
	var body updateCompanyRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var company models.Company
	if err := h.db.WithContext(requestContext(c)).First(&company, "id = ?", c.Param("id")).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.ICO != nil {
		updates["ico"] = strings.TrimSpace(*body.ICO)
	}
	if body.DIC != nil {
		updates["dic"] = strings.TrimSpace(*body.DIC)
	}
	if body.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*body.Email))
	}
	if body.Phone != nil {
		updates["phone"] = strings.TrimSpace(*body.Phone)
	}
	if body.City != nil {
		updates["address_city"] = strings.TrimSpace(*body.City)
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(requestContext(c)).Model(&company).Updates(updates).Error; err != nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}
	}
	response.Success(c, http.StatusOK, company)
}
