package models

import (
	"database/sql"
	"time"
)

// Role is the access tier assigned to a user account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleTest  Role = "TEST"
	RoleUser  Role = "USER"
)

// User is the canonical account record shared by all four login paths.
// PasswordHash is absent for accounts created through an external provider.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash sql.NullString
	Verified     bool
	Role         Role
	CreatedAt    time.Time
}
