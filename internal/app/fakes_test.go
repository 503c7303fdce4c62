package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/domain/application"
	"internportal/internal/domain/event"
	"internportal/internal/domain/internship"
)

type fakeAccountRepo struct {
	mu   sync.Mutex
	byID map[common.UUID]*account.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[common.UUID]*account.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, acc account.Account) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc.Email = account.NormalizeEmail(acc.Email)
	for _, existing := range r.byID {
		if existing.Role == acc.Role && existing.Email == acc.Email {
			return nil, common.NewError(common.CodeDuplicateEmail, "email already registered", nil)
		}
	}
	acc.ID = common.NewUUID()
	acc.CreatedAt = time.Now().UTC()
	acc.UpdatedAt = acc.CreatedAt
	stored := acc
	r.byID[acc.ID] = &stored
	return &acc, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id common.UUID) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.byID[id]
	if acc == nil {
		return nil, common.NewError(common.CodeNotFound, "account not found", nil)
	}
	copy := *acc
	return &copy, nil
}

func (r *fakeAccountRepo) FindByEmail(ctx context.Context, role account.Role, email string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = account.NormalizeEmail(email)
	for _, acc := range r.byID {
		if acc.Role == role && acc.Email == email {
			copy := *acc
			return &copy, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "account not found", nil)
}

func (r *fakeAccountRepo) List(ctx context.Context, filter account.ListFilter) ([]account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []account.Account
	for _, acc := range r.byID {
		if filter.Role != "" && acc.Role != filter.Role {
			continue
		}
		if filter.Approved != nil && acc.Approved != *filter.Approved {
			continue
		}
		items = append(items, *acc)
	}
	return items, nil
}

func (r *fakeAccountRepo) SetApproved(ctx context.Context, id common.UUID, approved bool) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.byID[id]
	if acc == nil || acc.Role != account.RoleEmployer {
		return nil, common.NewError(common.CodeNotFound, "employer not found", nil)
	}
	acc.Approved = approved
	copy := *acc
	return &copy, nil
}

func (r *fakeAccountRepo) UpdateProfile(ctx context.Context, id common.UUID, profile account.Profile) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.byID[id]
	if acc == nil {
		return nil, common.NewError(common.CodeNotFound, "account not found", nil)
	}
	acc.Profile = profile
	acc.UpdatedAt = time.Now().UTC()
	copy := *acc
	return &copy, nil
}

type fakeInternshipRepo struct {
	mu    sync.Mutex
	items map[common.UUID]*internship.Internship
	seq   int
}

func newFakeInternshipRepo() *fakeInternshipRepo {
	return &fakeInternshipRepo{items: make(map[common.UUID]*internship.Internship)}
}

func (r *fakeInternshipRepo) Create(ctx context.Context, in internship.Internship) (*internship.Internship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	in.ID = common.NewUUID()
	in.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	in.UpdatedAt = in.CreatedAt
	stored := in
	r.items[in.ID] = &stored
	return &in, nil
}

func (r *fakeInternshipRepo) GetByID(ctx context.Context, id common.UUID) (*internship.Internship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.items[id]
	if in == nil {
		return nil, common.NewError(common.CodeNotFound, "internship not found", nil)
	}
	copy := *in
	return &copy, nil
}

func (r *fakeInternshipRepo) List(ctx context.Context, filter internship.Filter) ([]internship.Internship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []internship.Internship
	for _, in := range r.items {
		if filter.EmployerID != "" && in.EmployerID != filter.EmployerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, in.Status) {
			continue
		}
		items = append(items, *in)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func containsStatus(statuses []internship.Status, status internship.Status) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func (r *fakeInternshipRepo) Update(ctx context.Context, id common.UUID, change internship.Change, at time.Time) (*internship.Internship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.items[id]
	if in == nil {
		return nil, common.NewError(common.CodeNotFound, "internship not found", nil)
	}
	if in.Status != change.From {
		return nil, common.NewError(common.CodeInvalidTransition, "status changed", nil)
	}
	if d := change.Details; d != nil {
		in.Title, in.Description, in.Requirements, in.Location, in.Duration = d.Title, d.Description, d.Requirements, d.Location, d.Duration
	}
	in.Status = change.Target()
	in.UpdatedAt = at
	copy := *in
	return &copy, nil
}

// fakeApplicationRepo enforces (student, internship) uniqueness inside its
// lock, the way the database constraint does.
type fakeApplicationRepo struct {
	mu          sync.Mutex
	items       map[common.UUID]*application.Application
	internships *fakeInternshipRepo
}

func newFakeApplicationRepo(internships *fakeInternshipRepo) *fakeApplicationRepo {
	return &fakeApplicationRepo{items: make(map[common.UUID]*application.Application), internships: internships}
}

func (r *fakeApplicationRepo) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.StudentID == app.StudentID && existing.InternshipID == app.InternshipID {
			return nil, common.NewError(common.CodeDuplicateApplication, "already applied", nil)
		}
	}
	app.ID = common.NewUUID()
	app.CreatedAt = time.Now().UTC()
	app.UpdatedAt = app.CreatedAt
	stored := app
	r.items[app.ID] = &stored
	return &app, nil
}

func (r *fakeApplicationRepo) withEmployer(app application.Application) application.Application {
	if in, err := r.internships.GetByID(context.Background(), app.InternshipID); err == nil {
		app.EmployerID = in.EmployerID
	}
	return app
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app := r.items[id]
	if app == nil {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	out := r.withEmployer(*app)
	return &out, nil
}

func (r *fakeApplicationRepo) List(ctx context.Context, filter application.Filter) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.Application
	for _, stored := range r.items {
		app := r.withEmployer(*stored)
		if filter.StudentID != "" && app.StudentID != filter.StudentID {
			continue
		}
		if filter.EmployerID != "" && app.EmployerID != filter.EmployerID {
			continue
		}
		if filter.InternshipID != "" && app.InternshipID != filter.InternshipID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		items = append(items, app)
	}
	return items, nil
}

func (r *fakeApplicationRepo) UpdateStatus(ctx context.Context, id common.UUID, from, to application.Status, at time.Time) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app := r.items[id]
	if app == nil {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	if app.Status != from {
		return nil, common.NewError(common.CodeInvalidTransition, "status changed", nil)
	}
	app.Status = to
	app.UpdatedAt = at
	out := r.withEmployer(*app)
	return &out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.events))
	for i, ev := range p.events {
		names[i] = ev.Name
	}
	return names
}
