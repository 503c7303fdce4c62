package account

import (
	"context"
	"strings"
	"time"

	"internportal/internal/common"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleEmployer   Role = "employer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole accepts the URL forms used by the signup/login routes, including
// the plural collection names the portal exposed historically.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "student", "students":
		return RoleStudent, true
	case "employer", "employers":
		return RoleEmployer, true
	case "admin", "admins":
		return RoleAdmin, true
	case "super_admin", "super-admin", "superadmin", "super_admins":
		return RoleSuperAdmin, true
	default:
		return "", false
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type Profile struct {
	Name        string `json:"name,omitempty"`
	Department  string `json:"department,omitempty"`
	Year        string `json:"year,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
}

type Account struct {
	ID           common.UUID `json:"id"`
	Role         Role        `json:"role"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Profile
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanLogin reports the approval gate: only employers wait for an admin.
func (a Account) CanLogin() bool {
	return a.Role != RoleEmployer || a.Approved
}

type ListFilter struct {
	Role     Role
	Approved *bool
	Limit    int
	Offset   int
}

type Repository interface {
	// Create fails with CodeDuplicateEmail when (role, email) is taken.
	Create(ctx context.Context, account Account) (*Account, error)
	GetByID(ctx context.Context, id common.UUID) (*Account, error)
	FindByEmail(ctx context.Context, role Role, email string) (*Account, error)
	List(ctx context.Context, filter ListFilter) ([]Account, error)
	SetApproved(ctx context.Context, id common.UUID, approved bool) (*Account, error)
	UpdateProfile(ctx context.Context, id common.UUID, profile Profile) (*Account, error)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
