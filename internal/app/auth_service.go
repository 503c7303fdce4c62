package app

import (
	"context"
	"slices"
	"strings"
	"time"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/security"
	"internportal/internal/validation"
)

// AuthService owns credentials: signup, login and token validation.
type AuthService struct {
	accounts      account.Repository
	hasher        *security.PasswordHasher
	tokens        *security.JWTProvider
	logger        Logger
	tokenTTL      time.Duration
	studentDomain string
	// dummyHash is compared against when the account does not exist so a
	// miss costs the same as a wrong password.
	dummyHash string
}

type AuthOptions struct {
	TokenTTL           time.Duration
	StudentEmailDomain string
}

func NewAuthService(accounts account.Repository, hasher *security.PasswordHasher, tokens *security.JWTProvider, logger Logger, opts AuthOptions) (*AuthService, error) {
	dummy, err := hasher.Hash("timing-equalizer-Passw0rd")
	if err != nil {
		return nil, err
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:      accounts,
		hasher:        hasher,
		tokens:        tokens,
		logger:        orNop(logger),
		tokenTTL:      opts.TokenTTL,
		studentDomain: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(opts.StudentEmailDomain)), "@"),
		dummyHash:     dummy,
	}, nil
}

type RegisterInput struct {
	Role        account.Role `json:"-"`
	Email       string       `json:"email" validate:"required,email,max=254"`
	Password    string       `json:"password" validate:"required"`
	Name        string       `json:"name" validate:"max=120"`
	Department  string       `json:"department" validate:"max=120"`
	Year        string       `json:"year" validate:"max=20"`
	CompanyName string       `json:"company_name" validate:"max=200"`
	ContactName string       `json:"contact_name" validate:"max=120"`
}

type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Account   *account.Account `json:"account"`
}

// Register creates an account for a public role, or an admin when the actor
// is a super admin. Employers start unapproved.
func (s *AuthService) Register(ctx context.Context, actor access.Subject, in RegisterInput) (*account.Account, error) {
	if err := access.Check(actor, access.CreateAccount, access.Resource{TargetRole: in.Role}); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

// Bootstrap creates admin or super admin accounts from the operator CLI,
// outside any HTTP session.
func (s *AuthService) Bootstrap(ctx context.Context, in RegisterInput) (*account.Account, error) {
	if !in.Role.IsAdmin() {
		return nil, common.NewValidationError("invalid role", map[string]string{"role": "must be admin or super_admin"})
	}
	return s.create(ctx, in)
}

func (s *AuthService) create(ctx context.Context, in RegisterInput) (*account.Account, error) {
	in.Email = account.NormalizeEmail(in.Email)
	trimProfile(&in)
	if fields := s.validateRegistration(in); len(fields) > 0 {
		return nil, common.NewValidationError("invalid signup request", fields)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to hash password", err)
	}
	created, err := s.accounts.Create(ctx, account.Account{
		Role:         in.Role,
		Email:        in.Email,
		PasswordHash: hash,
		Profile: account.Profile{
			Name:        in.Name,
			Department:  in.Department,
			Year:        in.Year,
			CompanyName: in.CompanyName,
			ContactName: in.ContactName,
		},
		Approved: in.Role != account.RoleEmployer,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", "account_id", created.ID, "role", created.Role)
	return created, nil
}

func trimProfile(in *RegisterInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.Year = strings.TrimSpace(in.Year)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.ContactName = strings.TrimSpace(in.ContactName)
}

func (s *AuthService) validateRegistration(in RegisterInput) map[string]string {
	checked := validation.Struct(&in)
	fields := profileProblems(in, checked)
	for _, name := range []string{"email", "password"} {
		if msg, ok := checked[name]; ok {
			fields[name] = msg
		}
	}
	if _, ok := fields["password"]; !ok {
		if err := security.CheckPasswordStrength(in.Password); err != nil {
			fields["password"] = err.Error()
		}
	}
	if _, ok := fields["email"]; !ok && in.Role == account.RoleStudent && s.studentDomain != "" {
		if !strings.HasSuffix(in.Email, "@"+s.studentDomain) {
			fields["email"] = "must be a @" + s.studentDomain + " address"
		}
	}
	return fields
}

// Authenticate checks credentials for (role, email). Unknown account and wrong
// password are indistinguishable; approval is only reported after the
// password matched.
func (s *AuthService) Authenticate(ctx context.Context, role account.Role, email, password string) (*Session, error) {
	missing := map[string]string{}
	if strings.TrimSpace(email) == "" {
		missing["email"] = "is required"
	}
	if password == "" {
		missing["password"] = "is required"
	}
	if len(missing) > 0 {
		return nil, common.NewValidationError("invalid login request", missing)
	}
	found, err := s.accounts.FindByEmail(ctx, role, email)
	if err != nil {
		if !common.Is(err, common.CodeNotFound) {
			return nil, err
		}
		s.hasher.Compare(s.dummyHash, password)
		return nil, invalidCredentials()
	}
	if !s.hasher.Compare(found.PasswordHash, password) {
		return nil, invalidCredentials()
	}
	if !found.CanLogin() {
		return nil, common.NewError(common.CodeNotApproved, "employer account awaits admin approval", nil)
	}
	token, expiresAt, err := s.tokens.Generate(found.ID, string(found.Role), s.tokenTTL)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to issue token", err)
	}
	s.logger.Info("login succeeded", "account_id", found.ID, "role", found.Role)
	return &Session{Token: token, ExpiresAt: expiresAt, Account: found}, nil
}

func invalidCredentials() error {
	return common.NewError(common.CodeInvalidCredentials, "invalid email or password", nil)
}

// ValidateToken has no side effects and fails uniformly.
func (s *AuthService) ValidateToken(token string) (access.Subject, error) {
	subject, _, err := s.ValidateSession(token)
	return subject, err
}

// ValidateSession also returns when the token stops being valid, for
// connections that outlive a single request.
func (s *AuthService) ValidateSession(token string) (access.Subject, time.Time, error) {
	claims, err := s.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return access.Subject{}, time.Time{}, invalidToken(err)
	}
	role, ok := account.ParseRole(claims.Role)
	if !ok || string(role) != claims.Role {
		return access.Subject{}, time.Time{}, invalidToken(nil)
	}
	id, err := common.ParseUUID(claims.Subject)
	if err != nil {
		return access.Subject{}, time.Time{}, invalidToken(err)
	}
	return access.Subject{AccountID: id, Role: role}, claims.ExpiresAt.Time, nil
}

func invalidToken(err error) error {
	return common.NewError(common.CodeInvalidToken, "invalid or expired token", err)
}

func (s *AuthService) Me(ctx context.Context, subject access.Subject) (*account.Account, error) {
	acc, err := s.accounts.GetByID(ctx, subject.AccountID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeUnauthorized, "account no longer exists", nil)
		}
		return nil, err
	}
	return acc, nil
}

// ProfileInput edits the caller's own profile. Omitted fields keep their
// value; fields that do not belong to the caller's role are rejected.
type ProfileInput struct {
	Name        *string `json:"name"`
	Department  *string `json:"department"`
	Year        *string `json:"year"`
	CompanyName *string `json:"company_name"`
	ContactName *string `json:"contact_name"`
}

var profileFields = map[account.Role][]string{
	account.RoleStudent:    {"name", "department", "year"},
	account.RoleEmployer:   {"company_name", "contact_name"},
	account.RoleAdmin:      {"name"},
	account.RoleSuperAdmin: {"name"},
}

func (in ProfileInput) apply(role account.Role, current account.Profile) (account.Profile, map[string]string) {
	fields := map[string]string{}
	updated := current
	edits := 0
	for _, field := range []struct {
		name  string
		value *string
		dst   *string
	}{
		{"name", in.Name, &updated.Name},
		{"department", in.Department, &updated.Department},
		{"year", in.Year, &updated.Year},
		{"company_name", in.CompanyName, &updated.CompanyName},
		{"contact_name", in.ContactName, &updated.ContactName},
	} {
		if field.value == nil {
			continue
		}
		edits++
		if !slices.Contains(profileFields[role], field.name) {
			fields[field.name] = "cannot be set for " + string(role) + " accounts"
			continue
		}
		*field.dst = strings.TrimSpace(*field.value)
	}
	if edits == 0 {
		fields["profile"] = "at least one field is required"
		return current, fields
	}
	check := RegisterInput{
		Role:        role,
		Name:        updated.Name,
		Department:  updated.Department,
		Year:        updated.Year,
		CompanyName: updated.CompanyName,
		ContactName: updated.ContactName,
	}
	for name, msg := range profileProblems(check, validation.Struct(&check)) {
		if _, taken := fields[name]; !taken {
			fields[name] = msg
		}
	}
	return updated, fields
}

// profileProblems keeps the profile part of checked and adds the per-role
// required fields shared by signup and profile edits.
func profileProblems(in RegisterInput, checked map[string]string) map[string]string {
	fields := map[string]string{}
	for name, msg := range checked {
		if name != "email" && name != "password" {
			fields[name] = msg
		}
	}
	switch in.Role {
	case account.RoleStudent, account.RoleAdmin, account.RoleSuperAdmin:
		if in.Name == "" {
			fields["name"] = "is required"
		}
	case account.RoleEmployer:
		if in.CompanyName == "" {
			fields["company_name"] = "is required"
		}
		if in.ContactName == "" {
			fields["contact_name"] = "is required"
		}
	default:
		fields["role"] = "is not a known role"
	}
	return fields
}

// UpdateProfile lets any signed-in account edit its own profile. Email,
// role, password and approval are not editable here.
func (s *AuthService) UpdateProfile(ctx context.Context, subject access.Subject, in ProfileInput) (*account.Account, error) {
	if err := access.Check(subject, access.EditProfile, access.Resource{OwnerID: subject.AccountID}); err != nil {
		return nil, err
	}
	current, err := s.Me(ctx, subject)
	if err != nil {
		return nil, err
	}
	profile, fields := in.apply(current.Role, current.Profile)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid profile", fields)
	}
	updated, err := s.accounts.UpdateProfile(ctx, current.ID, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", "account_id", current.ID, "role", current.Role)
	return updated, nil
}
