package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"piggybank/internal/amqp"
	"piggybank/internal/core"
	"piggybank/internal/sheets/memory"
	"piggybank/internal/storage"
)

func newTestWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "piggybank.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	report := memory.New()
	return NewSyncWorker(repo, report, report, 10), repo, report
}

func createPiggy(t *testing.T, repo *storage.SQLiteRepository, title string) core.PiggyBank {
	t.Helper()
	saved, err := repo.CreatePiggy(context.Background(), core.PiggyBank{
		Title:       title,
		AmountCents: 10_000,
		GoalCents:   200_000,
		Need:        core.NeedHigh,
		Owner:       "maria",
	})
	if err != nil {
		t.Fatalf("create piggy: %v", err)
	}
	return saved
}

func TestHandleSyncMessageMirrorsAndMarksSynced(t *testing.T) {
	w, repo, report := newTestWorker(t)
	ctx := context.Background()
	saved := createPiggy(t, repo, "Vacation")

	if err := w.HandleSyncMessage(ctx, amqp.NewPiggySyncMessage(saved.ID, 1)); err != nil {
		t.Fatalf("handle sync: %v", err)
	}

	items := report.List()
	if len(items) != 1 || items[0].Title != "Vacation" {
		t.Fatalf("expected Vacation on report, got %+v", items)
	}

	row, err := repo.GetPiggyRow(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get row: %v", err)
	}
	if row.SyncState != storage.SyncDone {
		t.Errorf("expected sync state %q, got %q", storage.SyncDone, row.SyncState)
	}
}

func TestHandleSyncMessageSkipsDeletedRow(t *testing.T) {
	w, _, report := newTestWorker(t)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewPiggySyncMessage(99, 1)); err != nil {
		t.Fatalf("sync for missing row must not error: %v", err)
	}
	if len(report.List()) != 0 {
		t.Error("nothing should reach the report for a missing row")
	}
}

func TestHandleDeleteMessageRemovesFromReport(t *testing.T) {
	w, repo, report := newTestWorker(t)
	ctx := context.Background()
	saved := createPiggy(t, repo, "Vacation")

	if err := w.HandleSyncMessage(ctx, amqp.NewPiggySyncMessage(saved.ID, 1)); err != nil {
		t.Fatalf("handle sync: %v", err)
	}
	if err := w.HandleDeleteMessage(ctx, amqp.NewPiggyDeleteMessage(saved.ID, "Vacation", "maria")); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(report.List()) != 0 {
		t.Error("expected empty report after delete")
	}
}

func TestStartupSyncCheckSweepsPendingRows(t *testing.T) {
	w, repo, report := newTestWorker(t)
	ctx := context.Background()
	createPiggy(t, repo, "Vacation")
	createPiggy(t, repo, "New Car")

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup sync: %v", err)
	}
	if got := len(report.List()); got != 2 {
		t.Fatalf("expected 2 mirrored rows, got %d", got)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending rows after sweep, got %d", len(pending))
	}
}

type failingWriter struct{}

func (failingWriter) Upsert(context.Context, core.PiggyBank) (string, error) {
	return "", errors.New("report unavailable")
}

func TestSyncFailureMarksRowAndPropagates(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "piggybank.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	w := NewSyncWorker(repo, failingWriter{}, nil, 10)
	ctx := context.Background()
	saved := createPiggy(t, repo, "Vacation")

	if err := w.HandleSyncMessage(ctx, amqp.NewPiggySyncMessage(saved.ID, 1)); err == nil {
		t.Fatal("expected error from failing report writer")
	}

	row, err := repo.GetPiggyRow(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get row: %v", err)
	}
	if row.SyncState != storage.SyncError {
		t.Errorf("expected sync state %q, got %q", storage.SyncError, row.SyncState)
	}
}
