package feed

import (
	"context"
	"time"

	"zro-loans/internal/domain/application"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event tells admin sessions that an application row changed.
// It carries no applicant data and never the client token.
type Event struct {
	Type          EventType          `json:"type"`
	ApplicationID string             `json:"application_id"`
	Status        application.Status `json:"status,omitempty"`
	At            time.Time          `json:"at"`
}

func NewEvent(t EventType, a *application.LoanApplication) Event {
	return Event{Type: t, ApplicationID: a.ID, Status: a.Status, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
