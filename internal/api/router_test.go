package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/app"
	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/cache"
	"github.com/tidecrm/tide/internal/database"
	"github.com/tidecrm/tide/internal/database/testutil"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/services"
)

type routerFixture struct {
	db     *gorm.DB
	router *gin.Engine
	audit  *services.AuditService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret", TTL: time.Hour})
	require.NoError(t, err)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Auth.JWT.Secret = "router-test-secret"

	r, err := NewRouter(Deps{
		DB:    db,
		JWT:   jwt,
		Store: cache.NewMemoryStore(),
		Audit: audit,
		Cfg:   cfg,
	})
	require.NoError(t, err)

	return &routerFixture{db: db, router: r, audit: audit}
}

// seedAdmin provisions a user holding every permission via the seeded
// Administrator role.
func (f *routerFixture) seedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := iauth.HashPassword("admin-secret-1")
	require.NoError(t, err)
	require.NoError(t, database.EnsureAdminUser(f.db, "admin", hash, "admin@test"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"client_id":"admin","client_secret":"admin-secret-1"}`))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var parsed struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return parsed.Data.AccessToken
}

func (f *routerFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouterPublicEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/nope", "", "").Code)
}

func TestRouterRequiresAuthentication(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/api/leads", "/api/users", "/api/audit-logs", "/api/auth/me"} {
		w := f.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouterAdminEndToEnd(t *testing.T) {
	f := newRouterFixture(t)
	token := f.seedAdmin(t)

	// Identity includes every seeded module.
	w := f.do(http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"leads"`)

	// Create and list through the guarded pipeline.
	w = f.do(http.MethodPost, "/api/leads", token, `{"title":"Pipeline check"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/api/leads?title=pipeline", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pipeline check")

	w = f.do(http.MethodGet, "/api/users", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterForbidsUngrantedModule(t *testing.T) {
	f := newRouterFixture(t)

	hash, err := iauth.HashPassword("user-secret-1")
	require.NoError(t, err)
	user := models.User{ClientID: "plain", SecretHash: hash, Email: "plain@test", IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)

	w := f.do(http.MethodPost, "/api/auth/login", "", `{"client_id":"plain","client_secret":"user-secret-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var parsed struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))

	w = f.do(http.MethodGet, "/api/leads", parsed.Data.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterLoginRateLimit(t *testing.T) {
	f := newRouterFixture(t)

	// The auth group defaults to 10 requests per minute per identity.
	var last int
	for i := 0; i < 11; i++ {
		w := f.do(http.MethodPost, "/api/auth/login", "", `{"client_id":"x","client_secret":"y"}`)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRouterAuditsRequests(t *testing.T) {
	f := newRouterFixture(t)

	f.do(http.MethodPost, "/api/auth/login", "", `{"client_id":"ghost","client_secret":"nope"}`)
	f.do(http.MethodGet, "/health", "", "")

	// The audit write happens off the request path.
	require.Eventually(t, func() bool {
		_, total, err := f.audit.List(context.Background(), services.AuditListOptions{})
		return err == nil && total == 1
	}, 2*time.Second, 10*time.Millisecond)

	records, _, err := f.audit.List(context.Background(), services.AuditListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/api/auth/login", records[0].Path)
	// Credentials never reach the audit trail.
	assert.NotContains(t, string(records[0].RequestBody), "nope")
	assert.Contains(t, string(records[0].RequestBody), "***REDACTED***")
}
