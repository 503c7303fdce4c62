package app

import (
	"context"
	"strings"
	"time"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/event"
	"internportal/internal/domain/internship"
	"internportal/internal/validation"
)

type InternshipService struct {
	repo   internship.Repository
	events event.Publisher
	logger Logger
	now    func() time.Time
}

func NewInternshipService(repo internship.Repository, events event.Publisher, logger Logger) *InternshipService {
	return &InternshipService{repo: repo, events: orNopPublisher(events), logger: orNop(logger), now: time.Now}
}

type InternshipInput struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"required,max=5000"`
	Requirements string `json:"requirements" validate:"max=5000"`
	Location     string `json:"location" validate:"max=200"`
	Duration     string `json:"duration" validate:"max=100"`
}

func (in InternshipInput) details() internship.Details {
	return internship.Details{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Requirements: strings.TrimSpace(in.Requirements),
		Location:     strings.TrimSpace(in.Location),
		Duration:     strings.TrimSpace(in.Duration),
	}
}

func (in InternshipInput) validate() error {
	d := in.details()
	trimmed := InternshipInput{Title: d.Title, Description: d.Description, Requirements: d.Requirements, Location: d.Location, Duration: d.Duration}
	if fields := validation.Struct(&trimmed); len(fields) > 0 {
		return common.NewValidationError("invalid internship", fields)
	}
	return nil
}

type InternshipQuery struct {
	// ActiveOnly is the employer's "all active" view.
	ActiveOnly bool
	Status     internship.Status
	EmployerID common.UUID
	Limit      int
	Offset     int
}

func (s *InternshipService) List(ctx context.Context, subject access.Subject, q InternshipQuery) ([]internship.Internship, error) {
	requested := internship.Filter{EmployerID: q.EmployerID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		requested.Statuses = []internship.Status{q.Status}
	}
	return s.repo.List(ctx, access.InternshipScope(subject, requested, q.ActiveOnly))
}

func (s *InternshipService) Get(ctx context.Context, subject access.Subject, id common.UUID) (*internship.Internship, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(subject, access.ViewInternship, internshipResource(current)); err != nil {
		return nil, err
	}
	return current, nil
}

// Create always starts the posting in pending_review.
func (s *InternshipService) Create(ctx context.Context, subject access.Subject, in InternshipInput) (*internship.Internship, error) {
	if err := access.Check(subject, access.CreateInternship, access.Resource{}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	d := in.details()
	created, err := s.repo.Create(ctx, internship.Internship{
		EmployerID:   subject.AccountID,
		Title:        d.Title,
		Description:  d.Description,
		Requirements: d.Requirements,
		Location:     d.Location,
		Duration:     d.Duration,
		Status:       internship.StatusPendingReview,
	})
	if err != nil {
		return nil, err
	}
	notify(ctx, s.events, s.logger, event.Event{
		Name:         event.InternshipCreated,
		ActorID:      subject.AccountID,
		Payload:      map[string]string{"internship_id": created.ID.String(), "status": string(created.Status)},
		Audience:     audience(created.EmployerID),
		AdminVisible: true,
	})
	return created, nil
}

// InternshipPatch carries a status move, a field edit, or both. Omitted
// fields keep their current value.
type InternshipPatch struct {
	Status       *string `json:"status"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Requirements *string `json:"requirements"`
	Location     *string `json:"location"`
	Duration     *string `json:"duration"`
}

func (p InternshipPatch) editsDetails() bool {
	return p.Title != nil || p.Description != nil || p.Requirements != nil || p.Location != nil || p.Duration != nil
}

func (p InternshipPatch) merge(current *internship.Internship) InternshipInput {
	in := InternshipInput{
		Title:        current.Title,
		Description:  current.Description,
		Requirements: current.Requirements,
		Location:     current.Location,
		Duration:     current.Duration,
	}
	for _, field := range []struct {
		patch *string
		dst   *string
	}{
		{p.Title, &in.Title},
		{p.Description, &in.Description},
		{p.Requirements, &in.Requirements},
		{p.Location, &in.Location},
		{p.Duration, &in.Duration},
	} {
		if field.patch != nil {
			*field.dst = *field.patch
		}
	}
	return in
}

// Update edits the posting text. Only the owner may edit, and only while the
// posting is pending_review or active.
func (s *InternshipService) Update(ctx context.Context, subject access.Subject, id common.UUID, in InternshipInput) (*internship.Internship, error) {
	return s.Revise(ctx, subject, id, InternshipPatch{
		Title:        &in.Title,
		Description:  &in.Description,
		Requirements: &in.Requirements,
		Location:     &in.Location,
		Duration:     &in.Duration,
	})
}

func (s *InternshipService) TransitionStatus(ctx context.Context, subject access.Subject, id common.UUID, next internship.Status) (*internship.Internship, error) {
	status := string(next)
	return s.Revise(ctx, subject, id, InternshipPatch{Status: &status})
}

// Revise checks every part of the patch before writing anything, then stores
// the edit and the status move together. A patch that fails any check leaves
// the posting untouched.
func (s *InternshipService) Revise(ctx context.Context, subject access.Subject, id common.UUID, patch InternshipPatch) (*internship.Internship, error) {
	if patch.Status == nil && !patch.editsDetails() {
		return nil, common.NewValidationError("nothing to update", map[string]string{"status": "status or internship fields are required"})
	}
	var next internship.Status
	if patch.Status != nil {
		parsed, ok := internship.ParseStatus(strings.ToLower(strings.TrimSpace(*patch.Status)))
		if !ok {
			return nil, common.NewValidationError("invalid status", map[string]string{"status": "must be one of: pending_review active closed rejected"})
		}
		next = parsed
	}
	current, err := s.Get(ctx, subject, id)
	if err != nil {
		return nil, err
	}

	change := internship.Change{From: current.Status}
	if patch.editsDetails() {
		if err := access.Check(subject, access.EditInternship, internshipResource(current)); err != nil {
			return nil, err
		}
		if !current.Status.Editable() {
			return nil, common.NewError(common.CodeInvalidTransition, "internship is "+string(current.Status)+" and can no longer be edited", nil)
		}
		in := patch.merge(current)
		if err := in.validate(); err != nil {
			return nil, err
		}
		details := in.details()
		change.Details = &details
	}
	if next != "" {
		resource := internshipResource(current)
		resource.TargetInternship = next
		if err := access.Check(subject, access.TransitionInternship, resource); err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(next) {
			return nil, common.NewError(common.CodeInvalidTransition, "cannot move internship from "+string(current.Status)+" to "+string(next), nil)
		}
		change.To = next
	}

	updated, err := s.repo.Update(ctx, id, change, s.now())
	if err != nil {
		return nil, err
	}
	if change.To == "" {
		return updated, nil
	}
	s.logger.Info("internship status changed", "internship_id", id, "from", current.Status, "to", next, "actor_id", subject.AccountID)
	notify(ctx, s.events, s.logger, event.Event{
		Name:    event.InternshipStatusChanged,
		ActorID: subject.AccountID,
		Payload: map[string]string{
			"internship_id": id.String(),
			"from":          string(current.Status),
			"status":        string(next),
		},
		Audience:     audience(updated.EmployerID),
		AdminVisible: true,
		// Student listings change when a posting enters or leaves active.
		Broadcast: next == internship.StatusActive || current.Status == internship.StatusActive,
	})
	return updated, nil
}

func internshipResource(in *internship.Internship) access.Resource {
	return access.Resource{OwnerID: in.EmployerID, InternshipStatus: in.Status}
}
