package models

// Permission is a closed capability set on a module. There is no hierarchy:
// admin does not imply write or read, each must be granted explicitly.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// Permissions lists every valid permission value.
func Permissions() []Permission {
	return []Permission{PermissionRead, PermissionWrite, PermissionAdmin}
}

// Valid reports whether p is a member of the closed permission set.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

func (p Permission) String() string { return string(p) }
