package gormrepo

import (
	"context"
	"errors"
	"testing"

	domain "zro-loans/internal/domain/application"
	"zro-loans/internal/domain/uow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)
	repo := NewApplicationRepository(db)

	a := makeApplication("Commit")
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Applications.Create(ctx, a); err != nil {
			return err
		}
		_, err := r.Applications.Approve(ctx, a.ID, approvalOf(2500))
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("not visible after commit: %v", err)
	}
	if got.Status != "approved" {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)
	repo := NewApplicationRepository(db)

	a := makeApplication("Rollback")
	if err := repo.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Applications.Reject(ctx, a.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "pending" {
		t.Fatalf("status = %s after rollback, want pending", got.Status)
	}
}

func TestGormUoW_WithinTx_NotFound(t *testing.T) {
	guow := NewGormUoW(openTestDB(t))
	ctx := context.Background()

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		_, err := r.Applications.GetByID(ctx, "missing")
		return err
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want ErrRecordNotFound, got %v", err)
	}
}

func approvalOf(amount int64) domain.Approval {
	return domain.Approval{Amount: decimal.NewFromInt(amount)}
}
