package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/tidecrm/tide/internal/models"
)

// Deny reasons recorded on Decision. They never reach API responses; denial
// is uniform on the wire so callers cannot probe which modules exist.
const (
	ReasonGranted        = "granted"
	ReasonModuleMissing  = "module_missing"
	ReasonModuleInactive = "module_inactive"
	ReasonNoGrant        = "no_grant"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Resolver answers permission questions by walking user role assignments and
// their module grants.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver backed by the given database handle.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Authorize reports whether the user holds the permission on the named
// module. A missing or inactive module denies without touching role data so
// both cases are indistinguishable to the caller. Store faults surface as
// errors; they are never converted into a deny.
func (r *Resolver) Authorize(ctx context.Context, userID, moduleName string, perm models.Permission) (Decision, error) {
	if !perm.Valid() {
		return Decision{}, fmt.Errorf("permissions: unknown permission %q", perm)
	}

	var module models.Module
	err := r.db.WithContext(ctx).Where("name = ?", moduleName).First(&module).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Decision{Reason: ReasonModuleMissing}, nil
		}
		return Decision{}, fmt.Errorf("permissions: load module %q: %w", moduleName, err)
	}
	if !module.IsActive {
		return Decision{Reason: ReasonModuleInactive}, nil
	}

	var assignments []models.RoleAssignment
	err = r.db.WithContext(ctx).
		Preload("Role").
		Preload("Role.Grants").
		Where("user_id = ?", userID).
		Find(&assignments).Error
	if err != nil {
		return Decision{}, fmt.Errorf("permissions: load assignments for user %s: %w", userID, err)
	}

	for _, assignment := range assignments {
		if !assignment.Role.IsActive {
			continue
		}
		for _, grant := range assignment.Role.Grants {
			// Exact match only. Admin does not imply read or write.
			if grant.ModuleID == module.ID && grant.Permission == perm {
				return Decision{Allowed: true, Reason: ReasonGranted}, nil
			}
		}
	}

	return Decision{Reason: ReasonNoGrant}, nil
}

// UserPermissions returns the user's effective permissions grouped by module
// name, sorted for stable output. Inactive roles and inactive modules are
// skipped.
func (r *Resolver) UserPermissions(ctx context.Context, userID string) (map[string][]models.Permission, error) {
	var assignments []models.RoleAssignment
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Role.Grants").
		Preload("Role.Grants.Module").
		Where("user_id = ?", userID).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("permissions: load assignments for user %s: %w", userID, err)
	}

	seen := make(map[string]map[models.Permission]struct{})
	for _, assignment := range assignments {
		if !assignment.Role.IsActive {
			continue
		}
		for _, grant := range assignment.Role.Grants {
			if !grant.Module.IsActive {
				continue
			}
			perms, ok := seen[grant.Module.Name]
			if !ok {
				perms = make(map[models.Permission]struct{})
				seen[grant.Module.Name] = perms
			}
			perms[grant.Permission] = struct{}{}
		}
	}

	result := make(map[string][]models.Permission, len(seen))
	for name, perms := range seen {
		list := make([]models.Permission, 0, len(perms))
		for perm := range perms {
			list = append(list, perm)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		result[name] = list
	}

	return result, nil
}
