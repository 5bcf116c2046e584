package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/database/testutil"
	"github.com/tidecrm/tide/internal/models"
)

func newProductRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler := NewProductHandler(db)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/products", handler.List)
	r.GET("/api/products/categories", handler.Categories)
	r.GET("/api/products/:id/as-item", handler.AsItem)
	r.POST("/api/products", handler.Create)
	r.PATCH("/api/products/:id", handler.Update)
	r.DELETE("/api/products/:id", handler.Delete)
	return r, db
}

func seedCatalogue(t *testing.T, db *gorm.DB) []models.Product {
	t.Helper()
	products := []models.Product{
		{Name: "Consulting hour", Code: "CONS-1", Unit: "hod", Price: 1500, Currency: "CZK", TaxRate: 21, Category: "services", IsActive: true},
		{Name: "ERP licence", Code: "LIC-ERP", Unit: "pcs", Price: 90000, Currency: "CZK", TaxRate: 21, Category: "licences", IsActive: true, IsFeatured: true},
		{Name: "Legacy module", Code: "LEG-1", Unit: "pcs", Price: 5000, Currency: "CZK", Category: "licences", IsActive: false},
	}
	require.NoError(t, db.Create(&products).Error)
	return products
}

func TestProductListFiltersAndOrdersFeaturedFirst(t *testing.T) {
	r, db := newProductRouter(t)
	seedCatalogue(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products?is_active=true&price_from=1000", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var parsed struct {
		Data []models.Product `json:"data"`
		Meta *struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	require.Len(t, parsed.Data, 2)
	assert.EqualValues(t, 2, parsed.Meta.Total)
	// Featured products sort ahead of the rest.
	assert.Equal(t, "ERP licence", parsed.Data[0].Name)
	assert.Equal(t, "Consulting hour", parsed.Data[1].Name)
}

func TestProductCategoriesSkipInactive(t *testing.T) {
	r, db := newProductRouter(t)
	seedCatalogue(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var parsed struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, []string{"licences", "services"}, parsed.Data)
}

func TestProductCreateDefaults(t *testing.T) {
	r, _ := newProductRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"Support plan","price":2500}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var parsed struct {
		Data models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, "pcs", parsed.Data.Unit)
	assert.Equal(t, "CZK", parsed.Data.Currency)
	assert.True(t, parsed.Data.IsActive)
}

func TestProductAsItemSnapshotsValues(t *testing.T) {
	r, db := newProductRouter(t)
	products := seedCatalogue(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/"+products[0].ID+"/as-item?quantity=3", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var parsed struct {
		Data models.DocumentItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, products[0].ID, parsed.Data.ProductID)
	assert.Equal(t, 3.0, parsed.Data.Quantity)
	assert.Equal(t, 1500.0, parsed.Data.UnitPrice)
	assert.Equal(t, "hod", parsed.Data.Unit)

	// Inactive products cannot be placed on new documents.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/"+products[2].ID+"/as-item", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductDeleteDeactivatesByDefault(t *testing.T) {
	r, db := newProductRouter(t)
	products := seedCatalogue(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/products/"+products[0].ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", products[0].ID).Error)
	assert.False(t, stored.IsActive)

	// permanent=true removes the row.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/products/"+products[1].ID+"?permanent=true", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	err := db.First(&models.Product{}, "id = ?", products[1].ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
