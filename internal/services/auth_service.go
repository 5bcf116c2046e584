package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/metrics"
)

// AuthService verifies credentials and manages client secrets.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService constructs an AuthService using the provided database handle.
func NewAuthService(db *gorm.DB) (*AuthService, error) {
	if db == nil {
		return nil, stderrors.New("auth service: db is required")
	}
	return &AuthService{db: db}, nil
}

// Authenticate verifies the client credentials and returns the active user.
// Unknown identifier, wrong secret and deactivated account all collapse into
// the same invalid-credentials error so callers learn nothing about which
// part failed. The secret is always checked, even for unknown identifiers,
// to keep response timing uniform.
func (s *AuthService) Authenticate(ctx context.Context, identifier, secret string) (*models.User, error) {
	ctx = ensureContext(ctx)
	identifier = strings.TrimSpace(identifier)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("client_id = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			auth.VerifyPassword(secret, dummyDigest)
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, errors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth service: lookup user: %w", err)
	}

	if !auth.VerifyPassword(secret, user.SecretHash) || !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, errors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// ResetPassword replaces the user's secret after verifying the current one.
func (s *AuthService) ResetPassword(ctx context.Context, userID, currentSecret, newSecret string) error {
	ctx = ensureContext(ctx)

	if len(newSecret) < 8 {
		return errors.NewBadRequest("New secret must be at least 8 characters")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrUnauthenticated
		}
		return fmt.Errorf("auth service: lookup user: %w", err)
	}

	if !auth.VerifyPassword(currentSecret, user.SecretHash) {
		return errors.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newSecret)
	if err != nil {
		return fmt.Errorf("auth service: hash secret: %w", err)
	}

	err = s.db.WithContext(ctx).
		Model(&user).
		Update("client_secret", hash).Error
	if err != nil {
		return fmt.Errorf("auth service: update secret: %w", err)
	}
	return nil
}

// dummyDigest absorbs a verification round for unknown identifiers.
var dummyDigest = func() string {
	digest, err := auth.HashPassword("timing-equalizer")
	if err != nil {
		panic(err)
	}
	return digest
}()
