package models

import "time"

// Department identifies which dashboard and which column slots a user may
// write. ADM users administer the user store and see everything.
type Department string

const (
	DeptAdmin       Department = "ADM"
	DeptPurchasing  Department = "COMPRAS"
	DeptEngineering Department = "ENGENHARIA"
)

// Valid reports whether the department is one of the known roles.
func (d Department) Valid() bool {
	switch d {
	case DeptAdmin, DeptPurchasing, DeptEngineering:
		return true
	}
	return false
}

// User is a role assignment stored in the users table, keyed by email. The
// user store is the single authority for department resolution; there is no
// email-prefix fallback.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Department   Department `db:"department" json:"department"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Department *Department
	Active     *bool
	Search     string
	Page       int
	PageSize   int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
