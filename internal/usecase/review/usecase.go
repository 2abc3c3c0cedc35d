package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"zro-loans/internal/auth"
	"zro-loans/internal/domain/application"
	"zro-loans/internal/domain/feed"
	"zro-loans/internal/domain/uow"

	"gorm.io/gorm"
)

type Usecase struct {
	repo   application.Repository
	uow    uow.UnitOfWork
	events feed.Publisher
	log    *slog.Logger
}

func NewUsecase(r application.Repository, tx uow.UnitOfWork, events feed.Publisher, log *slog.Logger) *Usecase {
	if events == nil {
		events = feed.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Usecase{repo: r, uow: tx, events: events, log: log}
}

func (u *Usecase) List(ctx context.Context, p auth.Principal) (*ListDTO, error) {
	if !auth.IsAdmin(p) {
		return nil, auth.ErrForbidden
	}
	apps, err := u.repo.List(ctx)
	if err != nil {
		return nil, application.Unavailable(err)
	}
	out := &ListDTO{Data: make([]ApplicationDTO, 0, len(apps)), Stats: application.Tally(apps)}
	for i := range apps {
		out.Data = append(out.Data, toDTO(&apps[i]))
	}
	return out, nil
}

func validateApproval(in ApproveInput) (application.Approval, error) {
	amount, ok := parseAmount(in.ApprovedAmount)
	if !ok {
		return application.Approval{}, application.Invalid("approved_amount", "is required and must be numeric")
	}
	// stored with two decimals; an amount that rounds to zero is not positive
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return application.Approval{}, application.Invalid("approved_amount", "must be greater than 0")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return application.Approval{}, application.Invalid("age", "must be between 0 and 150")
	}
	if in.BirthDate != nil && strings.TrimSpace(*in.BirthDate) != "" {
		if _, err := time.Parse(time.DateOnly, strings.TrimSpace(*in.BirthDate)); err != nil {
			return application.Approval{}, application.Invalid("birth_date", "must be YYYY-MM-DD")
		}
	}
	return application.Approval{
		Amount: amount,
		KYC: application.KYC{
			Address:    clean(in.Address),
			Age:        in.Age,
			BirthDate:  clean(in.BirthDate),
			MotherName: clean(in.MotherName),
			Gender:     clean(in.Gender),
			CPFStatus:  clean(in.CPFStatus),
			CNSNumber:  clean(in.CNSNumber),
		},
	}, nil
}

// clean trims and maps blank form fields to NULL.
func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Approve moves a pending application to approved together with amount and KYC.
func (u *Usecase) Approve(ctx context.Context, p auth.Principal, id string, in ApproveInput) (*ApplicationDTO, error) {
	if !auth.IsAdmin(p) {
		return nil, auth.ErrForbidden
	}
	ap, err := validateApproval(in)
	if err != nil {
		return nil, err
	}
	a, err := u.decide(ctx, id, func(r application.Repository) (int64, error) {
		return r.Approve(ctx, id, ap)
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "application approved", "application_id", id, "admin", p.Subject, "amount", ap.Amount.String())
	u.publish(ctx, feed.NewEvent(feed.EventUpdate, a))
	dto := toDTO(a)
	return &dto, nil
}

func (u *Usecase) Reject(ctx context.Context, p auth.Principal, id string) (*ApplicationDTO, error) {
	if !auth.IsAdmin(p) {
		return nil, auth.ErrForbidden
	}
	a, err := u.decide(ctx, id, func(r application.Repository) (int64, error) {
		return r.Reject(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "application rejected", "application_id", id, "admin", p.Subject)
	u.publish(ctx, feed.NewEvent(feed.EventUpdate, a))
	dto := toDTO(a)
	return &dto, nil
}

// decide runs a guarded pending-only update; the first decision wins and later ones get ErrAlreadyDecided.
func (u *Usecase) decide(ctx context.Context, id string, update func(r application.Repository) (int64, error)) (*application.LoanApplication, error) {
	if u.uow == nil {
		return nil, application.ErrStoreUnavailable
	}
	var out *application.LoanApplication
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Applications.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err)
		}
		if cur.Status.Terminal() {
			return application.ErrAlreadyDecided
		}
		n, err := update(r.Applications)
		if err != nil {
			return application.Unavailable(err)
		}
		if n == 0 {
			// another admin got there between our read and write
			return application.ErrAlreadyDecided
		}
		out, err = r.Applications.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a decided application; pending ones are refused.
func (u *Usecase) Delete(ctx context.Context, p auth.Principal, id string) error {
	if !auth.IsAdmin(p) {
		return auth.ErrForbidden
	}
	if u.uow == nil {
		return application.ErrStoreUnavailable
	}
	var deleted *application.LoanApplication
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Applications.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err)
		}
		if !cur.Status.Terminal() {
			return application.ErrNotTerminal
		}
		n, err := r.Applications.Delete(ctx, id)
		if err != nil {
			return application.Unavailable(err)
		}
		if n == 0 {
			return application.ErrNotFound
		}
		deleted = cur
		return nil
	})
	if err != nil {
		return err
	}
	u.log.InfoContext(ctx, "application deleted", "application_id", id, "admin", p.Subject)
	u.publish(ctx, feed.NewEvent(feed.EventDelete, deleted))
	return nil
}

func (u *Usecase) publish(ctx context.Context, e feed.Event) {
	if err := u.events.Publish(ctx, e); err != nil {
		u.log.WarnContext(ctx, "publish change event failed", "application_id", e.ApplicationID, "err", err)
	}
}

func lookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return application.ErrNotFound
	}
	return application.Unavailable(err)
}
