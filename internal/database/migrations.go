package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Module{},
		&models.RoleAssignment{},
		&models.ModuleGrant{},
		&models.ApiLog{},
		&models.Company{},
		&models.Product{},
		&models.Lead{},
		&models.Deal{},
		&models.Invoice{},
	)
}

// defaultModules are the capability domains the router protects out of the box.
var defaultModules = []models.Module{
	{Name: "users", Description: "User administration"},
	{Name: "roles", Description: "Role and grant administration"},
	{Name: "modules", Description: "Module administration"},
	{Name: "companies", Description: "Customer companies"},
	{Name: "products", Description: "Product and service catalogue"},
	{Name: "leads", Description: "Sales leads"},
	{Name: "deals", Description: "Sales deals"},
	{Name: "invoices", Description: "Invoicing"},
	{Name: "audit", Description: "Audit log access"},
}

// SeedData populates the default modules and an administrator role holding
// every permission on every module. Existing rows are left untouched.
func SeedData(db *gorm.DB) error {
	for _, module := range defaultModules {
		module.IsActive = true
		if err := db.Where(models.Module{Name: module.Name}).Attrs(module).FirstOrCreate(&models.Module{}).Error; err != nil {
			return fmt.Errorf("seed module %q: %w", module.Name, err)
		}
	}

	adminRole := models.Role{
		Name:        "Administrator",
		Description: "Full access to every module",
		IsActive:    true,
	}
	var role models.Role
	if err := db.Where(models.Role{Name: adminRole.Name}).Attrs(adminRole).FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("seed administrator role: %w", err)
	}

	var modules []models.Module
	if err := db.Find(&modules).Error; err != nil {
		return err
	}

	for _, module := range modules {
		for _, permission := range models.Permissions() {
			grant := models.ModuleGrant{RoleID: role.ID, ModuleID: module.ID, Permission: permission}
			err := db.Where(models.ModuleGrant{
				RoleID:     role.ID,
				ModuleID:   module.ID,
				Permission: permission,
			}).Attrs(grant).FirstOrCreate(&models.ModuleGrant{}).Error
			if err != nil {
				return fmt.Errorf("seed grant %s on %s: %w", permission, module.Name, err)
			}
		}
	}

	return nil
}

// EnsureAdminUser creates the bootstrap administrator account when it does not
// exist and attaches the Administrator role. The secret hash is produced by
// the caller so this package stays free of crypto concerns.
func EnsureAdminUser(db *gorm.DB, clientID, secretHash, email string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return errors.New("admin client id is required")
	}
	if secretHash == "" {
		return errors.New("admin secret hash is required")
	}

	user := models.User{
		ClientID:   clientID,
		SecretHash: secretHash,
		Email:      strings.TrimSpace(email),
		IsActive:   true,
	}
	var existing models.User
	if err := db.Where(models.User{ClientID: clientID}).Attrs(user).FirstOrCreate(&existing).Error; err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	var role models.Role
	if err := db.Where("name = ?", "Administrator").First(&role).Error; err != nil {
		return fmt.Errorf("load administrator role: %w", err)
	}

	assignment := models.RoleAssignment{UserID: existing.ID, RoleID: role.ID}
	err := db.Where(models.RoleAssignment{UserID: existing.ID, RoleID: role.ID}).
		Attrs(assignment).
		FirstOrCreate(&models.RoleAssignment{}).Error
	if err != nil {
		return fmt.Errorf("assign administrator role: %w", err)
	}

	return nil
}
