package applicationmock

import (
	"context"
	"errors"
	"testing"

	domain "zro-loans/internal/domain/application"
)

func TestRepo_UsesProvidedFuncs(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	called := map[string]bool{}

	m := &Repo{
		CreateFn: func(context.Context, *domain.LoanApplication) error { called["create"] = true; return boom },
		GetByIDFn: func(_ context.Context, id string) (*domain.LoanApplication, error) {
			called["get"] = true
			return &domain.LoanApplication{ID: id}, nil
		},
		ListFn:    func(context.Context) ([]domain.LoanApplication, error) { called["list"] = true; return nil, nil },
		ApproveFn: func(context.Context, string, domain.Approval) (int64, error) { called["approve"] = true; return 0, nil },
		RejectFn:  func(context.Context, string) (int64, error) { called["reject"] = true; return 0, nil },
		DeleteFn:  func(context.Context, string) (int64, error) { called["delete"] = true; return 0, nil },
	}

	if err := m.Create(ctx, &domain.LoanApplication{}); !errors.Is(err, boom) {
		t.Fatalf("Create: want boom, got %v", err)
	}
	if a, err := m.GetByID(ctx, "A-1"); err != nil || a.ID != "A-1" {
		t.Fatalf("GetByID: %+v %v", a, err)
	}
	_, _ = m.List(ctx)
	if n, _ := m.Approve(ctx, "A-1", domain.Approval{}); n != 0 {
		t.Fatalf("Approve n = %d", n)
	}
	_, _ = m.Reject(ctx, "A-1")
	_, _ = m.Delete(ctx, "A-1")

	for _, k := range []string{"create", "get", "list", "approve", "reject", "delete"} {
		if !called[k] {
			t.Fatalf("%s func not called", k)
		}
	}
}

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if err := m.Create(ctx, &domain.LoanApplication{}); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
	if _, err := m.GetByID(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByID default: want context.Canceled, got %v", err)
	}
	if _, err := m.List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("List default: want context.Canceled, got %v", err)
	}
	if n, err := m.Approve(ctx, "x", domain.Approval{}); n != 1 || err != nil {
		t.Fatalf("Approve default: n=%d err=%v", n, err)
	}
	if n, err := m.Reject(ctx, "x"); n != 1 || err != nil {
		t.Fatalf("Reject default: n=%d err=%v", n, err)
	}
	if n, err := m.Delete(ctx, "x"); n != 1 || err != nil {
		t.Fatalf("Delete default: n=%d err=%v", n, err)
	}
}
