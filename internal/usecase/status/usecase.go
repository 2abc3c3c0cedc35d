package status

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"zro-loans/internal/domain/application"

	"gorm.io/gorm"
)

// ErrMissingFields is returned when either identifier or token is blank.
var ErrMissingFields = errors.New("application_id and client_token are required")

// compared against when the id is unknown, so both miss paths do the same work
var decoyToken = strings.Repeat("0", 64)

type Usecase struct {
	repo application.Repository
	log  *slog.Logger
}

func NewUsecase(r application.Repository, log *slog.Logger) *Usecase {
	if log == nil {
		log = slog.Default()
	}
	return &Usecase{repo: r, log: log}
}

// Check returns the applicant-visible projection iff token matches the stored one.
// Unknown id and wrong token both yield application.ErrNotFound.
func (u *Usecase) Check(ctx context.Context, in CheckInput) (*StatusDTO, error) {
	appID := strings.TrimSpace(in.ApplicationID)
	if appID == "" || in.ClientToken == "" {
		return nil, ErrMissingFields
	}

	a, err := u.repo.GetByID(ctx, appID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		tokensEqual(decoyToken, in.ClientToken)
		u.log.DebugContext(ctx, "status check miss")
		return nil, application.ErrNotFound
	case err != nil:
		u.log.ErrorContext(ctx, "status check store error", "err", err)
		return nil, application.Unavailable(err)
	}

	if !tokensEqual(a.ClientToken, in.ClientToken) {
		u.log.DebugContext(ctx, "status check miss")
		return nil, application.ErrNotFound
	}
	return toDTO(a), nil
}

func tokensEqual(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
