package applicationmock

import (
	"context"

	domain "zro-loans/internal/domain/application"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset functions are no-ops for writes and return context.Canceled for reads.
type Repo struct {
	CreateFn  func(ctx context.Context, a *domain.LoanApplication) error
	GetByIDFn func(ctx context.Context, id string) (*domain.LoanApplication, error)
	ListFn    func(ctx context.Context) ([]domain.LoanApplication, error)
	ApproveFn func(ctx context.Context, id string, ap domain.Approval) (int64, error)
	RejectFn  func(ctx context.Context, id string) (int64, error)
	DeleteFn  func(ctx context.Context, id string) (int64, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.LoanApplication) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id string) (*domain.LoanApplication, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) List(ctx context.Context) ([]domain.LoanApplication, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) Approve(ctx context.Context, id string, ap domain.Approval) (int64, error) {
	if m.ApproveFn != nil {
		return m.ApproveFn(ctx, id, ap)
	}
	return 1, nil
}

func (m *Repo) Reject(ctx context.Context, id string) (int64, error) {
	if m.RejectFn != nil {
		return m.RejectFn(ctx, id)
	}
	return 1, nil
}

func (m *Repo) Delete(ctx context.Context, id string) (int64, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return 1, nil
}
