package application

import "context"

type Repository interface {
	Create(ctx context.Context, a *LoanApplication) error

	// GetByID returns gorm.ErrRecordNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*LoanApplication, error)

	// List returns every application, newest first.
	List(ctx context.Context) ([]LoanApplication, error)

	// Approve and Reject only touch rows still pending; they report rows affected.
	Approve(ctx context.Context, id string, ap Approval) (int64, error)
	Reject(ctx context.Context, id string) (int64, error)

	Delete(ctx context.Context, id string) (int64, error)
}
