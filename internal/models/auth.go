package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

// Roles recognised by the engine. Authentication itself lives outside;
// only the role claim matters here, to gate purge and destructive fan-out.
const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleStaff   UserRole = "STAFF"
)

// Valid reports whether the role is one the engine recognises.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// CanPurge reports whether the role may hard-delete ended memberships
// and deactivate sessions.
func (r UserRole) CanPurge() bool {
	return r == RoleAdmin
}

// JWTClaims carries identity claims issued by the external auth system.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
