package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/database/testutil"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/services"
)

type recordingSink struct {
	entries chan services.AuditEntry
}

func newRecordingSink() *recordingSink {
	return &recordingSink{entries: make(chan services.AuditEntry, 16)}
}

func (s *recordingSink) Record(_ context.Context, entry services.AuditEntry) error {
	s.entries <- entry
	return nil
}

func (s *recordingSink) wait(t *testing.T) services.AuditEntry {
	t.Helper()
	select {
	case entry := <-s.entries:
		return entry
	case <-time.After(2 * time.Second):
		t.Fatal("no audit entry recorded")
		return services.AuditEntry{}
	}
}

func newAuditRouter(sink AuditSink, cfg AuditConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Audit(sink, cfg))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access_token": "issued-token", "token_type": "bearer"})
	})
	r.GET("/api/leads/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	return r
}

func TestAuditRecordsRequestAndRedactsBodies(t *testing.T) {
	sink := newRecordingSink()
	r := newAuditRouter(sink, AuditConfig{})

	body := `{"client_id":"acme","client_secret":"hunter2"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login?debug=1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	entry := sink.wait(t)
	assert.Equal(t, w.Header().Get(RequestIDHeader), entry.RequestID)
	assert.Equal(t, "POST", entry.Method)
	assert.Equal(t, "/api/login", entry.Path)
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Equal(t, http.StatusOK, entry.StatusCode)
	assert.Greater(t, entry.ProcessTime, 0.0)

	requestBody := entry.RequestBody.(map[string]any)
	assert.Equal(t, "acme", requestBody["client_id"])
	assert.Equal(t, RedactionMarker, requestBody["client_secret"])

	responseBody := entry.ResponseBody.(map[string]any)
	assert.Equal(t, RedactionMarker, responseBody["access_token"])
	assert.Equal(t, "bearer", responseBody["token_type"])

	query := entry.QueryParams.(map[string]any)
	assert.Equal(t, "1", query["debug"])
}

func TestAuditSkipsExcludedPaths(t *testing.T) {
	sink := newRecordingSink()
	r := newAuditRouter(sink, AuditConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case entry := <-sink.entries:
		t.Fatalf("unexpected audit entry for %s", entry.Path)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAuditCapturesPathParams(t *testing.T) {
	sink := newRecordingSink()
	r := newAuditRouter(sink, AuditConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leads/lead-42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	entry := sink.wait(t)
	params := entry.PathParams.(map[string]any)
	assert.Equal(t, "lead-42", params["id"])
}

func TestAuditPreservesExistingRequestID(t *testing.T) {
	sink := newRecordingSink()
	r := newAuditRouter(sink, AuditConfig{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/leads/lead-1", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	r.ServeHTTP(w, req)

	entry := sink.wait(t)
	assert.Equal(t, "upstream-id", entry.RequestID)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}

func TestAuditRecordsPanickingRequest(t *testing.T) {
	sink := newRecordingSink()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Same order the router uses: recovery outermost, audit inside it.
	r.Use(Recovery())
	r.Use(Audit(sink, AuditConfig{}))
	r.GET("/boom", func(c *gin.Context) { panic("lost database handle") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Persistence is asynchronous, so collect by path rather than order.
	statuses := map[string]int{}
	for i := 0; i < 2; i++ {
		entry := sink.wait(t)
		statuses[entry.Path] = entry.StatusCode
	}
	assert.Equal(t, http.StatusInternalServerError, statuses["/boom"])
	assert.Equal(t, http.StatusOK, statuses["/ok"])
}

func TestAuditAttributesRequestsAnsweredBeforeAuth(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := models.User{ClientID: "acme", SecretHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "audit-test-secret", TTL: time.Hour})
	require.NoError(t, err)
	token, err := jwt.Issue("acme")
	require.NoError(t, err)

	sink := newRecordingSink()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Audit(sink, AuditConfig{}, WithAuditPrincipal(jwt, db, "session")))
	// Answers before the authentication middleware ever runs, the way a
	// rate-limited request does.
	r.GET("/api/limited", func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/limited", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	entry := sink.wait(t)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, user.ID, *entry.UserID)

	// Without a token the record stays anonymous.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/limited", nil))
	entry = sink.wait(t)
	assert.Nil(t, entry.UserID)
}

func TestAuditOmitsNonJSONResponseBody(t *testing.T) {
	sink := newRecordingSink()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Audit(sink, AuditConfig{}))
	r.GET("/api/export", func(c *gin.Context) {
		c.String(http.StatusOK, "id,name\n1,Acme\n")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	require.Equal(t, http.StatusOK, w.Code)

	entry := sink.wait(t)
	assert.Nil(t, entry.ResponseBody)
}

func TestAuditSummarisesOversizedBodies(t *testing.T) {
	sink := newRecordingSink()
	r := newAuditRouter(sink, AuditConfig{MaxBodyBytes: 64})

	big := `{"title":"` + strings.Repeat("x", 200) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	entry := sink.wait(t)
	body := entry.RequestBody.(map[string]any)
	assert.Equal(t, "body too large", body["_omitted"])
}
