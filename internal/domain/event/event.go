package event

import (
	"context"
	"time"

	"internportal/internal/common"
)

const (
	InternshipCreated        = "internship.created"
	InternshipStatusChanged  = "internship.status_changed"
	ApplicationCreated       = "application.created"
	ApplicationStatusChanged = "application.status_changed"
	EmployerApproved         = "employer.approved"
)

// Event is a notification fanned out to connected clients. Audience lists
// the accounts allowed to receive it; AdminVisible widens that to every
// admin session.
type Event struct {
	Name         string            `json:"name"`
	ActorID      common.UUID       `json:"actor_id,omitempty"`
	Payload      map[string]string `json:"payload"`
	Audience     []common.UUID     `json:"audience,omitempty"`
	AdminVisible bool              `json:"admin_visible,omitempty"`
	Broadcast    bool              `json:"broadcast,omitempty"`
	At           time.Time         `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
