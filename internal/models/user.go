package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleFaculty  UserRole = "FACULTY"
	RoleHOD      UserRole = "HOD"
	RoleDean     UserRole = "DEAN"
	RoleVerifier UserRole = "VERIFIER"
	RoleExternal UserRole = "EXTERNAL"
	RoleDirector UserRole = "DIRECTOR"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleHOD, RoleDean, RoleVerifier, RoleExternal, RoleDirector:
		return true
	}
	return false
}

// User is a directory entry stored in the users table. The id doubles as the login name.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	Department   Department `db:"department" json:"department"`
	Position     string     `db:"position" json:"position"`
	Designation  string     `db:"designation" json:"designation"`
	Role         UserRole   `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Identity is the subset of a user needed by scoring: rank and administrative designation.
type Identity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Department  Department `json:"department"`
	Position    string     `json:"position"`
	Designation string     `json:"designation"`
}
