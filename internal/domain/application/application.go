package application

import (
	"time"

	"internportal/internal/common"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusReviewed    Status = "reviewed"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPending:     {StatusReviewed, StatusRejected},
	StatusReviewed:    {StatusShortlisted, StatusRejected},
	StatusShortlisted: {StatusRejected},
}

func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusReviewed, StatusShortlisted, StatusRejected:
		return Status(value), true
	default:
		return "", false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Application struct {
	ID           common.UUID `json:"id"`
	StudentID    common.UUID `json:"student_id"`
	InternshipID common.UUID `json:"internship_id"`
	Status       Status      `json:"status"`
	CoverLetter  string      `json:"cover_letter,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	// EmployerID is the owner of the internship, resolved by a join.
	EmployerID common.UUID `json:"-"`
}
