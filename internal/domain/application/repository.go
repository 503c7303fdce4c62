package application

import (
	"context"
	"time"

	"internportal/internal/common"
)

type Filter struct {
	StudentID    common.UUID
	EmployerID   common.UUID
	InternshipID common.UUID
	Status       Status
	Limit        int
	Offset       int
}

type Repository interface {
	// Create fails with CodeDuplicateApplication when the student already
	// applied to the internship; the store's unique key decides, not a pre-read.
	Create(ctx context.Context, application Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	List(ctx context.Context, filter Filter) ([]Application, error)
	UpdateStatus(ctx context.Context, id common.UUID, from, to Status, at time.Time) (*Application, error)
}
