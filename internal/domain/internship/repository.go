package internship

import (
	"context"
	"time"

	"internportal/internal/common"
)

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	EmployerID common.UUID
	Statuses   []Status
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, internship Internship) (*Internship, error)
	GetByID(ctx context.Context, id common.UUID) (*Internship, error)
	List(ctx context.Context, filter Filter) ([]Internship, error)
	// Update applies change in one statement. It fails with
	// CodeInvalidTransition when the stored status is no longer change.From.
	Update(ctx context.Context, id common.UUID, change Change, at time.Time) (*Internship, error)
}

// Change is a guarded write: it only lands while the row still holds From.
type Change struct {
	From Status
	// To is the new status; the zero value keeps From.
	To Status
	// Details replaces the posting text when non-nil.
	Details *Details
}

func (c Change) Target() Status {
	if c.To == "" {
		return c.From
	}
	return c.To
}
