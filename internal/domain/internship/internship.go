package internship

import (
	"time"

	"internportal/internal/common"
)

type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusActive        Status = "active"
	StatusClosed        Status = "closed"
	StatusRejected      Status = "rejected"
)

// transitions lists the only legal forward moves; anything absent is invalid,
// including staying in place.
var transitions = map[Status][]Status{
	StatusPendingReview: {StatusActive, StatusRejected},
	StatusActive:        {StatusClosed},
}

func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPendingReview, StatusActive, StatusClosed, StatusRejected:
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

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Editable reports whether the owner may still change the posting text.
func (s Status) Editable() bool {
	return s == StatusPendingReview || s == StatusActive
}

type Internship struct {
	ID           common.UUID `json:"id"`
	EmployerID   common.UUID `json:"employer_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Requirements string      `json:"requirements"`
	Location     string      `json:"location,omitempty"`
	Duration     string      `json:"duration,omitempty"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Details carries the owner-editable fields.
type Details struct {
	Title        string
	Description  string
	Requirements string
	Location     string
	Duration     string
}
