package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"duit/internal/core"
	"duit/internal/stats"
	"duit/internal/storage"
	"duit/internal/store/memory"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "duit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestCreateAndList(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, memory.NewStore(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", core.KindIncome, core.Money{Units: 200000}, "Gaji", mustDate(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated id")
	}

	txs, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", txs)
	}

	other, err := svc.List(ctx, "u2")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no transactions for other user, got %d", len(other))
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, memory.NewStore(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", core.KindIncome, core.Money{Units: 0}, "x", mustDate(t, "2024-03-01"))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	txs, _ := svc.List(ctx, "u1")
	if len(txs) != 0 {
		t.Errorf("invalid transaction was stored: %+v", txs)
	}
}

func TestListRefreshesFromUpstream(t *testing.T) {
	repo := newTestStorage(t)
	remote := memory.NewStore()
	ctx := context.Background()

	snapshot := []core.Transaction{{
		ID:          "r1",
		UserID:      "u1",
		Kind:        core.KindExpense,
		Amount:      core.Money{Units: 30000},
		Description: "Kopi",
		Date:        mustDate(t, "2024-03-02"),
		CreatedAt:   time.Now().UTC(),
	}}
	if err := remote.ReplaceTransactions(ctx, snapshot); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	svc := NewTransactionService(repo, remote, nil)
	txs, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "r1" {
		t.Fatalf("expected upstream snapshot in list, got %+v", txs)
	}
}

func TestRefreshSkippedWhileDirty(t *testing.T) {
	repo := newTestStorage(t)
	remote := memory.NewStore()
	ctx := context.Background()

	svc := NewTransactionService(repo, remote, nil)
	created, err := svc.Create(ctx, "u1", core.KindIncome, core.Money{Units: 100000}, "Gaji", mustDate(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Upstream has an older snapshot that must not clobber the
	// unsynced local write.
	stale := []core.Transaction{{
		ID:          "stale",
		UserID:      "u1",
		Kind:        core.KindExpense,
		Amount:      core.Money{Units: 1},
		Description: "x",
		Date:        mustDate(t, "2024-01-01"),
		CreatedAt:   time.Now().UTC(),
	}}
	if err := remote.ReplaceTransactions(ctx, stale); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	txs, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != created.ID {
		t.Fatalf("dirty cache was clobbered by upstream: %+v", txs)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, memory.NewStore(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", core.KindExpense, core.Money{Units: 50000}, "Makan", mustDate(t, "2024-03-03"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Amount = core.Money{Units: 60000}
	created.Description = "Makan malam"
	if err := svc.Update(ctx, created); err != nil {
		t.Fatalf("Update: %v", err)
	}

	txs, _ := svc.List(ctx, "u1")
	if txs[0].Amount.Units != 60000 || txs[0].Description != "Makan malam" {
		t.Errorf("update not applied: %+v", txs[0])
	}

	// Another user cannot delete it.
	if err := svc.Delete(ctx, "u2", created.ID); err == nil {
		t.Error("expected error deleting another user's transaction")
	}

	if err := svc.Delete(ctx, "u1", created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	txs, _ = svc.List(ctx, "u1")
	if len(txs) != 0 {
		t.Errorf("expected empty list after delete, got %+v", txs)
	}
}

func TestDashboardAggregates(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, memory.NewStore(), nil)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	if _, err := svc.Create(ctx, "u1", core.KindIncome, core.Money{Units: 200000}, "Gaji", mustDate(t, "2024-03-10")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "u1", core.KindExpense, core.Money{Units: 50000}, "Makan", mustDate(t, "2024-03-12")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	st, err := svc.Stats(ctx, "u1", now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.MonthlyIncome.Units != 200000 || st.MonthlyExpense.Units != 50000 || st.MonthlyBalance.Units != 150000 {
		t.Errorf("unexpected stats: %+v", st)
	}

	buckets, err := svc.Series(ctx, "u1", stats.Last7Days, now)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(buckets) != 8 {
		t.Errorf("expected 8 daily buckets, got %d", len(buckets))
	}

	bd, err := svc.Breakdown(ctx, "u1", stats.Last30Days, now)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if bd.TotalIncome.Units != 200000 || bd.TotalExpense.Units != 50000 {
		t.Errorf("unexpected breakdown: %+v", bd)
	}

	yearBuckets, err := svc.Series(ctx, "u1", stats.ThisYear, now)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(yearBuckets) != 1 || yearBuckets[0].Label != "Mar 2024" {
		t.Errorf("unexpected year buckets: %+v", yearBuckets)
	}
}
