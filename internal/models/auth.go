package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles the platform gateway may attach.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
)

// JWTClaims are the resolved claims supplied by the authentication
// collaborator. SchoolID scopes every operation in this service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	SchoolID string   `json:"school_id"`
	jwt.RegisteredClaims
}
