package app

import (
	"context"
	"strings"
	"time"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/application"
	"internportal/internal/domain/event"
	"internportal/internal/domain/internship"
	"internportal/internal/validation"
)

type ApplicationService struct {
	repo        application.Repository
	internships internship.Repository
	events      event.Publisher
	logger      Logger
	now         func() time.Time
}

func NewApplicationService(repo application.Repository, internships internship.Repository, events event.Publisher, logger Logger) *ApplicationService {
	return &ApplicationService{repo: repo, internships: internships, events: orNopPublisher(events), logger: orNop(logger), now: time.Now}
}

func (s *ApplicationService) List(ctx context.Context, subject access.Subject, filter application.Filter) ([]application.Application, error) {
	if filter.Status != "" {
		if _, ok := application.ParseStatus(string(filter.Status)); !ok {
			return nil, common.NewValidationError("invalid status", map[string]string{"status": "must be one of: pending reviewed shortlisted rejected"})
		}
	}
	return s.repo.List(ctx, access.ApplicationScope(subject, filter))
}

func (s *ApplicationService) Get(ctx context.Context, subject access.Subject, id common.UUID) (*application.Application, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(subject, access.ViewApplication, applicationResource(current)); err != nil {
		return nil, err
	}
	return current, nil
}

type SubmitInput struct {
	InternshipID common.UUID `json:"-"`
	CoverLetter  string      `json:"cover_letter" validate:"max=5000"`
}

// Submit files a pending application. The lookup for an earlier application
// only saves a round trip; the unique key decides under concurrency.
func (s *ApplicationService) Submit(ctx context.Context, subject access.Subject, in SubmitInput) (*application.Application, error) {
	if err := access.Check(subject, access.SubmitApplication, access.Resource{}); err != nil {
		return nil, err
	}
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	if fields := validation.Struct(&in); len(fields) > 0 {
		return nil, common.NewValidationError("invalid application", fields)
	}
	internshipID := in.InternshipID
	target, err := s.internships.GetByID(ctx, internshipID)
	if err != nil {
		return nil, err
	}
	if target.Status != internship.StatusActive {
		return nil, common.NewError(common.CodeInternshipNotActive, "internship is not accepting applications", nil)
	}
	existing, err := s.repo.List(ctx, application.Filter{StudentID: subject.AccountID, InternshipID: internshipID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, common.NewError(common.CodeDuplicateApplication, "already applied to this internship", nil)
	}
	created, err := s.repo.Create(ctx, application.Application{
		StudentID:    subject.AccountID,
		InternshipID: internshipID,
		Status:       application.StatusPending,
		CoverLetter:  in.CoverLetter,
	})
	if err != nil {
		return nil, err
	}
	created.EmployerID = target.EmployerID
	notify(ctx, s.events, s.logger, event.Event{
		Name:    event.ApplicationCreated,
		ActorID: subject.AccountID,
		Payload: map[string]string{
			"application_id": created.ID.String(),
			"internship_id":  internshipID.String(),
			"status":         string(created.Status),
		},
		Audience:     audience(subject.AccountID, target.EmployerID),
		AdminVisible: true,
	})
	return created, nil
}

func (s *ApplicationService) UpdateStatus(ctx context.Context, subject access.Subject, id common.UUID, next application.Status) (*application.Application, error) {
	if _, ok := application.ParseStatus(string(next)); !ok {
		return nil, common.NewValidationError("invalid status", map[string]string{"status": "must be one of: reviewed shortlisted rejected"})
	}
	current, err := s.Get(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(subject, access.ReviewApplication, applicationResource(current)); err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, common.NewError(common.CodeInvalidTransition, "cannot move application from "+string(current.Status)+" to "+string(next), nil)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, next, s.now())
	if err != nil {
		return nil, err
	}
	notify(ctx, s.events, s.logger, event.Event{
		Name:    event.ApplicationStatusChanged,
		ActorID: subject.AccountID,
		Payload: map[string]string{
			"application_id": id.String(),
			"internship_id":  updated.InternshipID.String(),
			"from":           string(current.Status),
			"status":         string(next),
		},
		Audience:     audience(updated.StudentID, updated.EmployerID),
		AdminVisible: true,
	})
	return updated, nil
}

func applicationResource(app *application.Application) access.Resource {
	return access.Resource{OwnerID: app.EmployerID, StudentID: app.StudentID}
}
