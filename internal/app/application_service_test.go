package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/domain/application"
	"internportal/internal/domain/event"
	"internportal/internal/domain/internship"
)

type applicationFixture struct {
	internships  *InternshipService
	applications *ApplicationService
	events       *recordingPublisher
}

func newApplicationFixture() *applicationFixture {
	internshipRepo := newFakeInternshipRepo()
	events := &recordingPublisher{}
	return &applicationFixture{
		internships:  NewInternshipService(internshipRepo, events, nil),
		applications: NewApplicationService(newFakeApplicationRepo(internshipRepo), internshipRepo, events, nil),
		events:       events,
	}
}

func (f *applicationFixture) activeInternship(t *testing.T, owner access.Subject) *internship.Internship {
	t.Helper()
	ctx := context.Background()
	created, err := f.internships.Create(ctx, owner, validInternship())
	if err != nil {
		t.Fatalf("create internship: %v", err)
	}
	active, err := f.internships.TransitionStatus(ctx, testAdmin, created.ID, internship.StatusActive)
	if err != nil {
		t.Fatalf("activate internship: %v", err)
	}
	return active
}

func TestApplicationServiceSubmitScenario(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()

	pending, err := f.internships.Create(ctx, testEmployer, validInternship())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: pending.ID}); !common.Is(err, common.CodeInternshipNotActive) {
		t.Fatalf("applying to pending posting: expected not active, got %v", err)
	}

	active := f.activeInternship(t, testEmployer)
	created, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: active.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.Status != application.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if _, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: active.ID}); !common.Is(err, common.CodeDuplicateApplication) {
		t.Fatalf("second submit: expected duplicate, got %v", err)
	}
	if _, err := f.applications.Submit(ctx, testEmployer, SubmitInput{InternshipID: active.ID}); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("employer submit: expected forbidden, got %v", err)
	}
	if _, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: common.NewUUID()}); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("unknown internship: expected not found, got %v", err)
	}

	if _, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: active.ID, CoverLetter: strings.Repeat("x", 5001)}); !common.Is(err, common.CodeValidation) {
		t.Fatalf("oversized cover letter: expected validation, got %v", err)
	}
	other := f.activeInternship(t, testEmployer)
	withLetter, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: other.ID, CoverLetter: "  I like Go.  "})
	if err != nil {
		t.Fatalf("submit with cover letter: %v", err)
	}
	seen, err := f.applications.Get(ctx, testEmployer, withLetter.ID)
	if err != nil || seen.CoverLetter != "I like Go." {
		t.Fatalf("owner should read the cover letter, got %+v %v", seen, err)
	}

	names := f.events.names()
	if names[len(names)-1] != event.ApplicationCreated {
		t.Fatalf("expected application.created event, got %v", names)
	}
}

func TestApplicationServiceConcurrentSubmit(t *testing.T) {
	f := newApplicationFixture()
	active := f.activeInternship(t, testEmployer)

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.applications.Submit(context.Background(), testStudent, SubmitInput{InternshipID: active.ID})
		}(i)
	}
	wg.Wait()

	var ok, duplicates int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case common.Is(err, common.CodeDuplicateApplication):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || duplicates != attempts-1 {
		t.Fatalf("expected exactly one success, got %d ok and %d duplicates", ok, duplicates)
	}
}

func TestApplicationServiceListScopes(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	mine := f.activeInternship(t, testEmployer)
	theirs := f.activeInternship(t, testRival)
	other := access.Subject{AccountID: common.NewUUID(), Role: account.RoleStudent}

	for _, subject := range []access.Subject{testStudent, other} {
		for _, id := range []common.UUID{mine.ID, theirs.ID} {
			if _, err := f.applications.Submit(ctx, subject, SubmitInput{InternshipID: id}); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
	}

	employerView, err := f.applications.List(ctx, testEmployer, application.Filter{EmployerID: testRival.AccountID})
	if err != nil {
		t.Fatalf("employer list: %v", err)
	}
	if len(employerView) != 2 {
		t.Fatalf("expected 2 applications for own posting, got %d", len(employerView))
	}
	for _, app := range employerView {
		if app.InternshipID != mine.ID {
			t.Fatalf("employer saw application on foreign internship: %+v", app)
		}
	}

	studentView, err := f.applications.List(ctx, testStudent, application.Filter{StudentID: other.AccountID})
	if err != nil {
		t.Fatalf("student list: %v", err)
	}
	if len(studentView) != 2 {
		t.Fatalf("expected own 2 applications, got %d", len(studentView))
	}
	for _, app := range studentView {
		if app.StudentID != testStudent.AccountID {
			t.Fatalf("student saw another student's application: %+v", app)
		}
	}

	adminView, err := f.applications.List(ctx, testAdmin, application.Filter{InternshipID: theirs.ID})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(adminView) != 2 {
		t.Fatalf("admin filter by internship: expected 2, got %d", len(adminView))
	}
}

func TestApplicationServiceUpdateStatus(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	active := f.activeInternship(t, testEmployer)
	created, err := f.applications.Submit(ctx, testStudent, SubmitInput{InternshipID: active.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.applications.UpdateStatus(ctx, testStudent, created.ID, application.StatusReviewed); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("student review: expected forbidden, got %v", err)
	}
	if _, err := f.applications.UpdateStatus(ctx, testRival, created.ID, application.StatusReviewed); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("rival review: expected not found, got %v", err)
	}
	if _, err := f.applications.UpdateStatus(ctx, testEmployer, created.ID, application.StatusShortlisted); !common.Is(err, common.CodeInvalidTransition) {
		t.Fatalf("skipping review: expected invalid transition, got %v", err)
	}

	reviewed, err := f.applications.UpdateStatus(ctx, testEmployer, created.ID, application.StatusReviewed)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != application.StatusReviewed {
		t.Fatalf("expected reviewed, got %s", reviewed.Status)
	}
	rejected, err := f.applications.UpdateStatus(ctx, testAdmin, created.ID, application.StatusRejected)
	if err != nil {
		t.Fatalf("admin reject: %v", err)
	}
	if rejected.Status != application.StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if _, err := f.applications.UpdateStatus(ctx, testEmployer, created.ID, application.StatusPending); !common.Is(err, common.CodeInvalidTransition) {
		t.Fatalf("reopening: expected invalid transition, got %v", err)
	}
}
