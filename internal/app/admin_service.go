package app

import (
	"context"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/domain/event"
)

type AdminService struct {
	accounts account.Repository
	events   event.Publisher
	logger   Logger
}

func NewAdminService(accounts account.Repository, events event.Publisher, logger Logger) *AdminService {
	return &AdminService{accounts: accounts, events: orNopPublisher(events), logger: orNop(logger)}
}

// ListAccounts is the admin directory. An empty role lists every account.
func (s *AdminService) ListAccounts(ctx context.Context, subject access.Subject, role account.Role, limit, offset int) ([]account.Account, error) {
	if err := access.Check(subject, access.ListAccounts, access.Resource{}); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx, account.ListFilter{Role: role, Limit: limit, Offset: offset})
}

func (s *AdminService) ListEmployers(ctx context.Context, subject access.Subject, approved *bool, limit, offset int) ([]account.Account, error) {
	if err := access.Check(subject, access.ListEmployers, access.Resource{}); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx, account.ListFilter{Role: account.RoleEmployer, Approved: approved, Limit: limit, Offset: offset})
}

// ApproveEmployer is idempotent; the event only fires on the first approval.
func (s *AdminService) ApproveEmployer(ctx context.Context, subject access.Subject, employerID common.UUID) (*account.Account, error) {
	if err := access.Check(subject, access.ApproveEmployer, access.Resource{}); err != nil {
		return nil, err
	}
	current, err := s.accounts.GetByID(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if current.Role != account.RoleEmployer {
		return nil, common.NewError(common.CodeNotFound, "employer not found", nil)
	}
	if current.Approved {
		return current, nil
	}
	updated, err := s.accounts.SetApproved(ctx, employerID, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("employer approved", "employer_id", employerID, "admin_id", subject.AccountID)
	notify(ctx, s.events, s.logger, event.Event{
		Name:         event.EmployerApproved,
		ActorID:      subject.AccountID,
		Payload:      map[string]string{"employer_id": employerID.String()},
		Audience:     audience(employerID),
		AdminVisible: true,
	})
	return updated, nil
}
