package wizard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"zro-loans/internal/domain/application"
	"zro-loans/internal/usecase/intake"
	"zro-loans/internal/usecase/status"
	"zro-loans/pkg/id"
)

type Submitter interface {
	Create(ctx context.Context, in intake.CreateApplicationInput) (*intake.CreatedDTO, error)
}

type StatusChecker interface {
	Check(ctx context.Context, in status.CheckInput) (*status.StatusDTO, error)
}

type Usecase struct {
	store  SessionStore
	intake Submitter
	status StatusChecker
	log    *slog.Logger
	now    func() time.Time
}

func NewUsecase(store SessionStore, submit Submitter, check StatusChecker, log *slog.Logger) *Usecase {
	if log == nil {
		log = slog.Default()
	}
	return &Usecase{store: store, intake: submit, status: check, log: log, now: time.Now}
}

// Start opens a session in the collecting step; an unsupported loan type creates nothing.
func (u *Usecase) Start(ctx context.Context, loanType string) (*View, error) {
	lt, err := application.ParseLoanType(loanType)
	if err != nil {
		return nil, err
	}
	now := u.now().UTC()
	s := &Session{
		ID:        id.NewID32(),
		LoanType:  string(lt),
		State:     StateCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return u.render(ctx, s), nil
}

func (u *Usecase) Get(ctx context.Context, sessionID string) (*View, error) {
	s, err := u.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return u.render(ctx, s), nil
}

func (u *Usecase) UpdateDraft(ctx context.Context, sessionID string, d Draft) (*View, error) {
	return u.step(ctx, sessionID, func(s *Session) error {
		if s.State != StateCollecting {
			return ErrWrongState
		}
		s.Draft = d
		return nil
	})
}

// Confirm moves to the review step once every field is filled in.
func (u *Usecase) Confirm(ctx context.Context, sessionID string) (*View, error) {
	return u.step(ctx, sessionID, func(s *Session) error {
		if s.State != StateCollecting {
			return ErrWrongState
		}
		if err := intake.Validate(u.input(s)); err != nil {
			return err
		}
		s.State = StateConfirming
		return nil
	})
}

func (u *Usecase) Back(ctx context.Context, sessionID string) (*View, error) {
	return u.step(ctx, sessionID, func(s *Session) error {
		// a reserved id may already be stored; editing would diverge from it
		if s.State != StateConfirming || s.reserved() {
			return ErrWrongState
		}
		s.State = StateCollecting
		return nil
	})
}

// Submit creates the application. The id and token are reserved in the session
// before the write, so a retry after any failure reuses them and the record is
// created at most once. A failed submit leaves the session confirming.
func (u *Usecase) Submit(ctx context.Context, sessionID string) (*View, error) {
	return u.step(ctx, sessionID, func(s *Session) error {
		switch s.State {
		case StateSubmitted:
			return nil
		case StateConfirming:
		default:
			return ErrWrongState
		}
		if !s.reserved() {
			s.ApplicationID = id.NewApplicationID()
			s.ClientToken = id.NewClientToken()
			s.UpdatedAt = u.now().UTC()
			if err := u.store.Save(ctx, s); err != nil {
				return err
			}
		}
		created, err := u.intake.Create(ctx, u.input(s))
		if err != nil {
			return err
		}
		s.State = StateSubmitted
		s.ApplicationID = created.ID
		s.ClientToken = created.ClientToken
		u.log.InfoContext(ctx, "wizard submitted", "session_id", s.ID, "application_id", created.ID)
		return nil
	})
}

func (u *Usecase) input(s *Session) intake.CreateApplicationInput {
	return intake.CreateApplicationInput{
		FullName: strings.TrimSpace(s.Draft.FullName),
		CPF:      strings.TrimSpace(s.Draft.CPF),
		Email:    strings.TrimSpace(s.Draft.Email),
		LoanType: s.LoanType,

		ID:          s.ApplicationID,
		ClientToken: s.ClientToken,
	}
}

// step applies fn under the session lock and saves only when fn succeeds.
func (u *Usecase) step(ctx context.Context, sessionID string, fn func(s *Session) error) (*View, error) {
	unlock, err := u.store.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := u.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	before := *s
	if err := fn(s); err != nil {
		return nil, err
	}
	if *s != before {
		s.UpdatedAt = u.now().UTC()
		if err := u.store.Save(ctx, s); err != nil {
			return nil, err
		}
	}
	return u.render(ctx, s), nil
}

func (u *Usecase) render(ctx context.Context, s *Session) *View {
	v := &View{
		SessionID:     s.ID,
		Step:          s.State,
		LoanType:      s.LoanType,
		LoanTypeLabel: application.LoanType(s.LoanType).Label(),
		Draft:         s.Draft,
	}
	if s.State != StateSubmitted {
		return v
	}
	v.ApplicationID = s.ApplicationID
	v.ClientToken = s.ClientToken
	if u.status == nil {
		return v
	}
	snap, err := u.status.Check(ctx, status.CheckInput{ApplicationID: s.ApplicationID, ClientToken: s.ClientToken})
	if err != nil {
		// the page keeps its last state; the next refresh tries again
		u.log.WarnContext(ctx, "wizard status lookup failed", "session_id", s.ID, "err", err)
		return v
	}
	v.Status = snap
	v.Terminal = snap.Terminal()
	return v
}
