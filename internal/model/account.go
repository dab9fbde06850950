package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of staff roles. An account holds exactly one.
type Role string

const (
	RoleDoctor        Role = "doctor"
	RoleReception     Role = "reception"
	RoleAdministrator Role = "administrator"
	RoleUnassigned    Role = "unassigned"
)

// ParseRole maps unknown input to RoleUnassigned: the account exists but has no privileges.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleDoctor, RoleReception, RoleAdministrator:
		return r
	default:
		return RoleUnassigned
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleReception, RoleAdministrator, RoleUnassigned:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	*r = ParseRole(s)
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return string(RoleUnassigned), nil
	}
	return string(r), nil
}

func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*r = ParseRole(v)
	case []byte:
		*r = ParseRole(string(v))
	case nil:
		*r = RoleUnassigned
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	return nil
}

// Account is a staff login. Doctors additionally own a Doctor profile.
type Account struct {
	Base
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	FirstName    string `json:"first_name" db:"first_name"`
	LastName     string `json:"last_name" db:"last_name"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
	IsActive     bool   `json:"is_active" db:"is_active"`
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type CreateAccountRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=150"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      Role   `json:"role"`
}

type UpdateAccountRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *Role   `json:"role"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
}

type AccountFilters struct {
	Role     Role
	Search   string
	IsActive *bool
}

// DashboardStats summarises accounts and patients for the admin dashboard.
type DashboardStats struct {
	TotalAccounts  int              `json:"total_accounts"`
	AccountsByRole map[Role]int     `json:"accounts_by_role"`
	RolePercentage map[Role]float64 `json:"role_percentage"`
	TotalPatients  int              `json:"total_patients"`
	RecentAccounts []*Account       `json:"recent_accounts"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// Actor identifies who performs an operation.
type Actor struct {
	AccountID uuid.UUID
	Role      Role
	DoctorID  *uuid.UUID
}
