package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret: "unit-test-secret",
		Issuer: "tide-test",
		TTL:    time.Hour,
		Clock:  clock,
	})
	require.NoError(t, err)
	return svc
}

func TestJWTIssueAndVerify(t *testing.T) {
	svc := newTestJWTService(t, nil)

	token, err := svc.Issue("client-123")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "client-123", claims.ClientID)
	assert.Equal(t, "tide-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTNonceUniqueness(t *testing.T) {
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return fixed })

	first, err := svc.Issue("client-123")
	require.NoError(t, err)
	second, err := svc.Issue("client-123")
	require.NoError(t, err)

	// Same subject, same issue instant, still distinct tokens.
	assert.NotEqual(t, first, second)

	a, err := svc.Verify(first)
	require.NoError(t, err)
	b, err := svc.Verify(second)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestJWTExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := issued
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.Issue("client-123")
	require.NoError(t, err)

	current = issued.Add(time.Hour - time.Second)
	_, err = svc.Verify(token)
	require.NoError(t, err)

	current = issued.Add(time.Hour + time.Second)
	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenExpired))
	assert.False(t, errors.Is(err, ErrTokenInvalid))
}

func TestJWTTamperedSignature(t *testing.T) {
	svc := newTestJWTService(t, nil)

	token, err := svc.Issue("client-123")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = svc.Verify(tampered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestJWTWrongSecret(t *testing.T) {
	svc := newTestJWTService(t, nil)
	other, err := NewJWTService(JWTConfig{Secret: "different-secret", Issuer: "tide-test"})
	require.NoError(t, err)

	token, err := other.Issue("client-123")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestJWTEmptyToken(t *testing.T) {
	svc := newTestJWTService(t, nil)
	_, err := svc.Verify("")
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}
