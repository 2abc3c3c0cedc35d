package wizard

import (
	"context"
	"errors"
	"time"

	"zro-loans/internal/usecase/status"
)

type State string

const (
	StateCollecting State = "collecting"
	StateConfirming State = "confirming"
	StateSubmitted  State = "submitted"
)

var (
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrWrongState      = errors.New("action not allowed in current step")
	ErrBusy            = errors.New("wizard session is busy")
)

type Draft struct {
	FullName string `json:"full_name"`
	CPF      string `json:"cpf"`
	Email    string `json:"email"`
}

// Session is the persisted wizard state. ApplicationID and ClientToken are
// reserved by the first submit attempt and shown only once submitted.
type Session struct {
	ID            string    `json:"id"`
	LoanType      string    `json:"loan_type"`
	State         State     `json:"state"`
	Draft         Draft     `json:"draft"`
	ApplicationID string    `json:"application_id,omitempty"`
	ClientToken   string    `json:"client_token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *Session) reserved() bool { return s.ApplicationID != "" }

// SessionStore persists sessions with a sliding TTL.
// Load returns ErrSessionNotFound for unknown or expired ids.
// Lock returns ErrBusy if another caller holds the session.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// View is what the wizard page renders for the current step.
type View struct {
	SessionID     string            `json:"session_id"`
	Step          State             `json:"step"`
	LoanType      string            `json:"loan_type"`
	LoanTypeLabel string            `json:"loan_type_label"`
	Draft         Draft             `json:"draft"`
	ApplicationID string            `json:"application_id,omitempty"`
	ClientToken   string            `json:"client_token,omitempty"`
	Status        *status.StatusDTO `json:"status,omitempty"`
	Terminal      bool              `json:"terminal"`
}
