package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleGreeter   UserRole = "GREETER"
	RoleDriver    UserRole = "DRIVER"
	RoleSubdriver UserRole = "SUBDRIVER"
	RoleSchool    UserRole = "SCHOOL"
)

// Valid reports whether the role is one of the supported values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleGreeter, RoleDriver, RoleSubdriver, RoleSchool:
		return true
	default:
		return false
	}
}

// DefaultStatus returns the account status a freshly created user of this
// role starts with. Drivers begin off duty until dispatch activates them.
func (r UserRole) DefaultStatus() string {
	if r == RoleDriver {
		return UserStatusOffDuty
	}
	return UserStatusActive
}

// User account statuses.
const (
	UserStatusActive  = "Active"
	UserStatusOffDuty = "Off Duty"
	UserStatusOnDuty  = "On Duty"
)

// User represents an application user stored in the users table. The
// role-scoped external numbers (driver_no, greeter_no, ...) are unique when
// present and only populated for the matching role.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	DriverNo     *string    `db:"driver_no" json:"driver_no,omitempty"`
	SubdriverNo  *string    `db:"subdriver_no" json:"subdriver_no,omitempty"`
	GreeterNo    *string    `db:"greeter_no" json:"greeter_no,omitempty"`
	SchoolNo     *string    `db:"school_no" json:"school_no,omitempty"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	Phone        string     `db:"phone" json:"phone"`
	Status       string     `db:"status" json:"status"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
