package intake

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"zro-loans/internal/domain/application"
	"zro-loans/internal/domain/feed"
	"zro-loans/pkg/id"

	"gorm.io/gorm"
)

var ErrIDTaken = errors.New("application id already in use")

type Usecase struct {
	repo   application.Repository
	events feed.Publisher
	log    *slog.Logger
}

func NewUsecase(r application.Repository, events feed.Publisher, log *slog.Logger) *Usecase {
	if events == nil {
		events = feed.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Usecase{repo: r, events: events, log: log}
}

// Validate is a minimal well-formedness check; it is not identity verification.
func Validate(in CreateApplicationInput) error {
	switch {
	case strings.TrimSpace(in.FullName) == "":
		return application.Invalid("full_name", "is required")
	case strings.TrimSpace(in.CPF) == "":
		return application.Invalid("cpf", "is required")
	case strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@"):
		return application.Invalid("email", "must be a valid email")
	}
	if _, err := application.ParseLoanType(in.LoanType); err != nil {
		return application.Invalid("loan_type", "must be one of personal, clt, fgts")
	}
	return nil
}

func (u *Usecase) Create(ctx context.Context, in CreateApplicationInput) (*CreatedDTO, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	lt, _ := application.ParseLoanType(in.LoanType)

	if in.ID != "" {
		prev, err := u.repo.GetByID(ctx, in.ID)
		switch {
		case err == nil:
			if subtle.ConstantTimeCompare([]byte(prev.ClientToken), []byte(in.ClientToken)) != 1 {
				return nil, fmt.Errorf("%w: %s", ErrIDTaken, in.ID)
			}
			u.log.InfoContext(ctx, "application already submitted", "application_id", prev.ID)
			return created(prev), nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			u.log.ErrorContext(ctx, "lookup reserved application failed", "err", err)
			return nil, application.Unavailable(err)
		}
	}

	a := &application.LoanApplication{
		ID:          in.ID,
		ClientToken: in.ClientToken,
		FullName:    strings.TrimSpace(in.FullName),
		CPF:         strings.TrimSpace(in.CPF),
		Email:       strings.TrimSpace(in.Email),
		LoanType:    lt,
		Status:      application.StatusPending,
	}
	if a.ID == "" {
		a.ID = id.NewApplicationID()
	}
	if a.ClientToken == "" {
		a.ClientToken = id.NewClientToken()
	}
	if err := u.repo.Create(ctx, a); err != nil {
		u.log.ErrorContext(ctx, "create application failed", "err", err)
		return nil, application.Unavailable(err)
	}
	u.log.InfoContext(ctx, "application submitted", "application_id", a.ID, "loan_type", a.LoanType)

	if err := u.events.Publish(ctx, feed.NewEvent(feed.EventInsert, a)); err != nil {
		u.log.WarnContext(ctx, "publish change event failed", "application_id", a.ID, "err", err)
	}

	return created(a), nil
}

func created(a *application.LoanApplication) *CreatedDTO {
	return &CreatedDTO{
		ID:          a.ID,
		ClientToken: a.ClientToken,
		Status:      string(a.Status),
	}
}
