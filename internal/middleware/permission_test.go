package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/database/testutil"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/permissions"
)

func newPermissionRouter(t *testing.T, db *gorm.DB, userID string, perm models.Permission) *gin.Engine {
	t.Helper()
	resolver := permissions.NewResolver(db)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/leads",
		func(c *gin.Context) { c.Set(CtxUserIDKey, userID) },
		RequireModulePermission(resolver, "leads", perm),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)
	return r
}

func TestRequireModulePermissionAllowsGrantedUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	user := models.User{ClientID: "acme", SecretHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	module := models.Module{Name: "leads", IsActive: true}
	require.NoError(t, db.Create(&module).Error)
	role := models.Role{Name: "sales", IsActive: true}
	require.NoError(t, db.Create(&role).Error)
	require.NoError(t, db.Create(&models.ModuleGrant{RoleID: role.ID, ModuleID: module.ID, Permission: models.PermissionRead}).Error)
	require.NoError(t, db.Create(&models.RoleAssignment{UserID: user.ID, RoleID: role.ID}).Error)

	r := newPermissionRouter(t, db, user.ID, models.PermissionRead)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireModulePermissionDenialsAreUniform(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	user := models.User{ClientID: "acme", SecretHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	// "leads" exists but the user holds nothing on it.
	require.NoError(t, db.Create(&models.Module{Name: "leads", IsActive: true}).Error)

	withModule := newPermissionRouter(t, db, user.ID, models.PermissionWrite)
	w := httptest.NewRecorder()
	withModule.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	noGrantBody := w.Body.String()

	// A guard for a module that does not exist answers identically.
	resolver := permissions.NewResolver(db)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ghosts",
		func(c *gin.Context) { c.Set(CtxUserIDKey, user.ID) },
		RequireModulePermission(resolver, "ghosts", models.PermissionWrite),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ghosts", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, noGrantBody, w.Body.String())
}

func TestRequireModulePermissionWithoutIdentity(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	resolver := permissions.NewResolver(db)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/leads",
		RequireModulePermission(resolver, "leads", models.PermissionRead),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
