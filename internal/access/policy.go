// Package access holds the single authorization table consulted by every
// service: (role, operation) -> predicate over the caller and the resource.
package access

import (
	"strings"

	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/domain/application"
	"internportal/internal/domain/internship"
)

type Operation string

const (
	CreateAccount        Operation = "account.create"
	ListAccounts         Operation = "account.list"
	EditProfile          Operation = "account.edit"
	ListEmployers        Operation = "employer.list"
	ApproveEmployer      Operation = "employer.approve"
	ViewInternship       Operation = "internship.view"
	CreateInternship     Operation = "internship.create"
	EditInternship       Operation = "internship.edit"
	TransitionInternship Operation = "internship.transition"
	ViewApplication      Operation = "application.view"
	SubmitApplication    Operation = "application.submit"
	ReviewApplication    Operation = "application.review"
)

// Subject is the authenticated caller. The zero Subject is anonymous.
type Subject struct {
	AccountID common.UUID
	Role      account.Role
}

func (s Subject) Anonymous() bool {
	return s.AccountID == ""
}

func (s Subject) role() account.Role {
	if s.Anonymous() {
		return ""
	}
	return s.Role
}

// Resource describes what an operation touches. Only the fields relevant to
// the operation are set.
type Resource struct {
	OwnerID          common.UUID
	StudentID        common.UUID
	InternshipStatus internship.Status
	TargetInternship internship.Status
	TargetRole       account.Role
}

type Predicate func(subject Subject, resource Resource) bool

func always(Subject, Resource) bool { return true }

func owns(s Subject, r Resource) bool { return r.OwnerID != "" && r.OwnerID == s.AccountID }

func applicant(s Subject, r Resource) bool { return r.StudentID != "" && r.StudentID == s.AccountID }

func publicSignup(_ Subject, r Resource) bool {
	return r.TargetRole == account.RoleStudent || r.TargetRole == account.RoleEmployer
}

func activeOnly(_ Subject, r Resource) bool {
	return r.InternshipStatus == internship.StatusActive
}

func ownerCloses(s Subject, r Resource) bool {
	return owns(s, r) && r.TargetInternship == internship.StatusClosed
}

func adminDecides(_ Subject, r Resource) bool {
	return r.TargetInternship == internship.StatusActive || r.TargetInternship == internship.StatusRejected
}

func activeOrOwned(s Subject, r Resource) bool {
	return r.InternshipStatus == internship.StatusActive || owns(s, r)
}

var table = map[account.Role]map[Operation]Predicate{
	"": {
		CreateAccount:  publicSignup,
		ViewInternship: activeOnly,
	},
	account.RoleStudent: {
		CreateAccount:     publicSignup,
		EditProfile:       owns,
		ViewInternship:    activeOnly,
		ViewApplication:   applicant,
		SubmitApplication: always,
	},
	account.RoleEmployer: {
		CreateAccount:        publicSignup,
		EditProfile:          owns,
		ViewInternship:       activeOrOwned,
		CreateInternship:     always,
		EditInternship:       owns,
		TransitionInternship: ownerCloses,
		ViewApplication:      owns,
		ReviewApplication:    owns,
	},
	account.RoleAdmin:      adminRules(),
	account.RoleSuperAdmin: superAdminRules(),
}

func adminRules() map[Operation]Predicate {
	return map[Operation]Predicate{
		CreateAccount:        publicSignup,
		ListAccounts:         always,
		EditProfile:          owns,
		ListEmployers:        always,
		ApproveEmployer:      always,
		ViewInternship:       always,
		TransitionInternship: adminDecides,
		ViewApplication:      always,
		ReviewApplication:    always,
	}
}

func superAdminRules() map[Operation]Predicate {
	rules := adminRules()
	rules[CreateAccount] = func(s Subject, r Resource) bool {
		return publicSignup(s, r) || r.TargetRole == account.RoleAdmin
	}
	return rules
}

// tenancy lists operations where a caller failing the predicate must not
// learn the resource exists.
var tenancy = map[account.Role]map[Operation]Predicate{
	"": {
		ViewInternship: activeOnly,
	},
	account.RoleStudent: {
		ViewInternship:  activeOnly,
		ViewApplication: applicant,
	},
	account.RoleEmployer: {
		ViewInternship:       activeOrOwned,
		EditInternship:       owns,
		TransitionInternship: owns,
		ViewApplication:      owns,
		ReviewApplication:    owns,
	},
}

// Allowed reports whether subject may perform op on resource. Anything not
// listed in the table is denied.
func Allowed(subject Subject, op Operation, resource Resource) bool {
	predicate, ok := table[subject.role()][op]
	if !ok {
		return false
	}
	return predicate(subject, resource)
}

// Check is Allowed returning the error services surface to callers:
// NotFound when the caller is outside the resource's tenancy, Forbidden
// otherwise.
func Check(subject Subject, op Operation, resource Resource) error {
	if Allowed(subject, op, resource) {
		return nil
	}
	if visible, ok := tenancy[subject.role()][op]; ok && !visible(subject, resource) {
		return Hidden(op.noun())
	}
	return Forbidden()
}

func (op Operation) noun() string {
	noun, _, _ := strings.Cut(string(op), ".")
	return noun
}

func Forbidden() error {
	return common.NewError(common.CodeForbidden, "operation not permitted", nil)
}

// Hidden is returned when the caller may not even learn the resource exists.
func Hidden(what string) error {
	return common.NewError(common.CodeNotFound, what+" not found", nil)
}

// InternshipScope narrows a listing to the rows subject may see.
func InternshipScope(subject Subject, requested internship.Filter, activeOnly bool) internship.Filter {
	scoped := internship.Filter{Limit: requested.Limit, Offset: requested.Offset}
	switch subject.Role {
	case account.RoleStudent:
		scoped.Statuses = []internship.Status{internship.StatusActive}
	case account.RoleEmployer:
		if activeOnly {
			scoped.Statuses = []internship.Status{internship.StatusActive}
			break
		}
		scoped.EmployerID = subject.AccountID
		scoped.Statuses = requested.Statuses
	case account.RoleAdmin, account.RoleSuperAdmin:
		scoped.Statuses = requested.Statuses
		scoped.EmployerID = requested.EmployerID
		if activeOnly {
			scoped.Statuses = []internship.Status{internship.StatusActive}
		}
	default:
		scoped.Statuses = []internship.Status{internship.StatusActive}
	}
	return scoped
}

// ApplicationScope pins the owner column so a caller only sees its own rows.
func ApplicationScope(subject Subject, requested application.Filter) application.Filter {
	scoped := requested
	switch subject.Role {
	case account.RoleStudent:
		scoped.StudentID = subject.AccountID
		scoped.EmployerID = ""
	case account.RoleEmployer:
		scoped.EmployerID = subject.AccountID
		scoped.StudentID = ""
	case account.RoleAdmin, account.RoleSuperAdmin:
	default:
		// An unknown role sees nothing: pin to an id no row carries.
		scoped.StudentID = common.UUID("-")
	}
	return scoped
}
