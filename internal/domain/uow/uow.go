package uow

import (
	"context"

	"zro-loans/internal/domain/application"
)

// Repos are bound to the running transaction.
type Repos struct {
	Applications application.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
