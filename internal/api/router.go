package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/app"
	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/cache"
	"github.com/tidecrm/tide/internal/handlers"
	"github.com/tidecrm/tide/internal/middleware"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/permissions"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB    *gorm.DB
	JWT   *iauth.JWTService
	Store cache.Store
	Audit middleware.AuditSink
	Cfg   *app.Config
}

// NewRouter builds the Gin engine, wires the request pipeline and registers
// all routes. Middleware order matters: auditing wraps everything so even
// rate-limited and unauthenticated requests leave a record.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	cfg := deps.Cfg
	cookies := iauth.CookieConfig{
		Name:   cfg.Auth.Cookie.Name,
		Domain: cfg.Auth.Cookie.Domain,
		Secure: cfg.Auth.Cookie.Secure,
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if deps.Audit != nil {
		r.Use(middleware.Audit(deps.Audit, middleware.AuditConfig{
			ExcludedPaths: cfg.Audit.ExcludedPaths,
			MaxBodyBytes:  cfg.Audit.MaxBodyBytes,
			WriteTimeout:  cfg.Audit.WriteTimeout,
		}, middleware.WithAuditPrincipal(deps.JWT, deps.DB, cookies.Name)))
	}

	var apiLimit, authLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewLimiter(deps.Store, deps.JWT, cookies.Name)
		apiLimit = limiter.Middleware(middleware.RateLimitConfig{
			Name:     "api",
			Requests: cfg.RateLimit.API.Requests,
			Window:   cfg.RateLimit.API.Window,
		})
		authLimit = limiter.Middleware(middleware.RateLimitConfig{
			Name:     "auth",
			Requests: cfg.RateLimit.Auth.Requests,
			Window:   cfg.RateLimit.Auth.Window,
		})
	} else {
		passthrough := func(c *gin.Context) { c.Next() }
		apiLimit, authLimit = passthrough, passthrough
	}

	// Public endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler, err := handlers.NewAuthHandler(deps.DB, deps.JWT, cookies)
	if err != nil {
		return nil, err
	}

	// Login carries the stricter limiter group.
	r.POST("/api/auth/login", authLimit, authHandler.Login)

	resolver := permissions.NewResolver(deps.DB)
	requireAuth := middleware.Auth(deps.JWT, deps.DB, cookies.Name)

	api := r.Group("/api", apiLimit, requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/reset-password", authHandler.ResetPassword)

	guard := func(module string, perm models.Permission) gin.HandlerFunc {
		return middleware.RequireModulePermission(resolver, module, perm)
	}

	userHandler := handlers.NewUserHandler(deps.DB)
	users := api.Group("/users")
	{
		users.GET("", guard("users", models.PermissionRead), userHandler.List)
		users.GET("/:id", guard("users", models.PermissionRead), userHandler.Get)
		users.POST("", guard("users", models.PermissionAdmin), userHandler.Create)
		users.PATCH("/:id", guard("users", models.PermissionAdmin), userHandler.Update)
		users.DELETE("/:id", guard("users", models.PermissionAdmin), userHandler.Delete)
		users.POST("/:id/roles", guard("users", models.PermissionAdmin), userHandler.AssignRole)
		users.DELETE("/:id/roles/:roleId", guard("users", models.PermissionAdmin), userHandler.RevokeRole)
	}

	roleHandler := handlers.NewRoleHandler(deps.DB)
	roles := api.Group("/roles")
	{
		roles.GET("", guard("roles", models.PermissionRead), roleHandler.List)
		roles.GET("/:id", guard("roles", models.PermissionRead), roleHandler.Get)
		roles.POST("", guard("roles", models.PermissionAdmin), roleHandler.Create)
		roles.PATCH("/:id", guard("roles", models.PermissionAdmin), roleHandler.Update)
		roles.DELETE("/:id", guard("roles", models.PermissionAdmin), roleHandler.Delete)
		roles.POST("/:id/grants", guard("roles", models.PermissionAdmin), roleHandler.Grant)
		roles.DELETE("/:id/grants/:grantId", guard("roles", models.PermissionAdmin), roleHandler.Revoke)
	}

	moduleHandler := handlers.NewModuleHandler(deps.DB)
	modules := api.Group("/modules")
	{
		modules.GET("", guard("modules", models.PermissionRead), moduleHandler.List)
		modules.GET("/:id", guard("modules", models.PermissionRead), moduleHandler.Get)
		modules.POST("", guard("modules", models.PermissionAdmin), moduleHandler.Create)
		modules.PATCH("/:id", guard("modules", models.PermissionAdmin), moduleHandler.Update)
	}

	companyHandler := handlers.NewCompanyHandler(deps.DB)
	companies := api.Group("/companies")
	{
		companies.GET("", guard("companies", models.PermissionRead), companyHandler.List)
		companies.GET("/:id", guard("companies", models.PermissionRead), companyHandler.Get)
		companies.POST("", guard("companies", models.PermissionWrite), companyHandler.Create)
		companies.PATCH("/:id", guard("companies", models.PermissionWrite), companyHandler.Update)
	}

	leadHandler := handlers.NewLeadHandler(deps.DB)
	leads := api.Group("/leads")
	{
		leads.GET("", guard("leads", models.PermissionRead), leadHandler.List)
		leads.GET("/:id", guard("leads", models.PermissionRead), leadHandler.Get)
		leads.POST("", guard("leads", models.PermissionWrite), leadHandler.Create)
		leads.PATCH("/:id", guard("leads", models.PermissionWrite), leadHandler.Update)
		leads.POST("/:id/convert", guard("leads", models.PermissionWrite), leadHandler.Convert)
	}

	productHandler := handlers.NewProductHandler(deps.DB)
	products := api.Group("/products")
	{
		products.GET("", guard("products", models.PermissionRead), productHandler.List)
		products.GET("/categories", guard("products", models.PermissionRead), productHandler.Categories)
		products.GET("/:id", guard("products", models.PermissionRead), productHandler.Get)
		products.GET("/:id/as-item", guard("products", models.PermissionRead), productHandler.AsItem)
		products.POST("", guard("products", models.PermissionWrite), productHandler.Create)
		products.PATCH("/:id", guard("products", models.PermissionWrite), productHandler.Update)
		products.DELETE("/:id", guard("products", models.PermissionWrite), productHandler.Delete)
	}

	dealHandler := handlers.NewDealHandler(deps.DB)
	deals := api.Group("/deals")
	{
		deals.GET("", guard("deals", models.PermissionRead), dealHandler.List)
		deals.GET("/:id", guard("deals", models.PermissionRead), dealHandler.Get)
		deals.POST("", guard("deals", models.PermissionWrite), dealHandler.Create)
		deals.PATCH("/:id", guard("deals", models.PermissionWrite), dealHandler.Update)
	}

	invoiceHandler := handlers.NewInvoiceHandler(deps.DB)
	invoices := api.Group("/invoices")
	{
		invoices.GET("", guard("invoices", models.PermissionRead), invoiceHandler.List)
		invoices.GET("/:id", guard("invoices", models.PermissionRead), invoiceHandler.Get)
		invoices.POST("", guard("invoices", models.PermissionWrite), invoiceHandler.Create)
		invoices.PATCH("/:id", guard("invoices", models.PermissionWrite), invoiceHandler.Update)
	}

	auditHandler, err := handlers.NewAuditHandler(deps.DB)
	if err != nil {
		return nil, err
	}
	api.GET("/audit-logs", guard("audit", models.PermissionRead), auditHandler.List)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
