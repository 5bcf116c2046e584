package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/permissions"
	"github.com/tidecrm/tide/internal/services"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/response"
)

// AuthHandler serves login, logout and identity endpoints.
type AuthHandler struct {
	db       *gorm.DB
	auth     *services.AuthService
	jwt      *iauth.JWTService
	resolver *permissions.Resolver
	cookies  iauth.CookieConfig
}

// NewAuthHandler wires the authentication endpoints.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService, cookies iauth.CookieConfig) (*AuthHandler, error) {
	svc, err := services.NewAuthService(db)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{
		db:       db,
		auth:     svc,
		jwt:      jwt,
		resolver: permissions.NewResolver(db),
		cookies:  cookies,
	}, nil
}

type loginRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.auth.Authenticate(requestContext(c), body.ClientID, body.ClientSecret)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Issue(user.ClientID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	iauth.SetSessionCookie(c, h.cookies, token, h.jwt.TTL())

	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.jwt.TTL().Seconds()),
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	iauth.ClearSessionCookie(c, h.cookies)
	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthenticated)
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).First(&user, "id = ?", userID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, errors.ErrUnauthenticated)
			return
		}
		response.Error(c, errors.ErrInternalServer)
		return
	}

	perms, err := h.resolver.UserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":        user,
		"permissions": perms,
	})
}

type resetPasswordRequest struct {
	CurrentSecret string `json:"current_secret" validate:"required"`
	NewSecret     string `json:"new_secret" validate:"required,min=8"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthenticated)
		return
	}

	var body resetPasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.auth.ResetPassword(requestContext(c), userID, body.CurrentSecret, body.NewSecret); err != nil {
		response.Error(c, err)
		return
	}

	// The old session stays valid until its token expires; force a fresh
	// login on this client at least.
	iauth.ClearSessionCookie(c, h.cookies)
	response.Success(c, http.StatusOK, gin.H{"message": "secret updated"})
}
