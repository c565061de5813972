package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"piggybank/internal/amqp"
	"piggybank/internal/core"
	"piggybank/internal/sheets"
	"piggybank/internal/storage"
)

// SyncWorker mirrors piggy banks from SQLite to the savings report.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.ReportWriter
	remover   sheets.ReportRemover
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer sheets.ReportWriter, remover sheets.ReportRemover, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single piggy-bank sync message. The row is
// reloaded from storage so a replayed or stale message still writes the
// current state to the report.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.PiggySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)

	row, err := w.storage.GetPiggyRow(ctx, msg.ID)
	if errors.Is(err, core.ErrPiggyNotFound) {
		// Deleted between publish and consume; the delete message will
		// clean up the report.
		slog.InfoContext(ctx, "Piggy bank gone, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get piggy bank from storage: %w", err)
	}

	if row.Version > msg.Version {
		slog.InfoContext(ctx, "Newer version already queued, syncing current state",
			"id", msg.ID, "message_version", msg.Version, "row_version", row.Version)
	}

	if err := w.syncToReport(ctx, row.Piggy); err != nil {
		return fmt.Errorf("sync piggy bank to report: %w", err)
	}
	return nil
}

// HandleDeleteMessage drops a deleted piggy bank from the report.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.PiggyDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID, "title", msg.Title, "owner", msg.Owner)

	if w.remover == nil {
		slog.WarnContext(ctx, "No report remover configured, skipping removal", "id", msg.ID)
		return nil
	}

	if err := w.remover.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove piggy bank from report: %w", err)
	}

	slog.InfoContext(ctx, "Removed piggy bank from report", "id", msg.ID)
	return nil
}

// ProcessPending sweeps rows still marked pending. This is the backup path
// for lost queue messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupSyncCheck reconciles pending rows at worker startup, with a larger
// batch to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPendingBatch(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending sync rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending piggy banks", "count", len(pending))

	synced := 0
	failed := 0
	for _, row := range pending {
		if err := w.syncToReport(ctx, row.Piggy); err != nil {
			slog.ErrorContext(ctx, "Failed to sync piggy bank",
				"id", row.Piggy.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) syncToReport(ctx context.Context, p core.PiggyBank) error {
	ref, err := w.writer.Upsert(ctx, p)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, p.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", markErr)
		}
		return fmt.Errorf("upsert report row: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, p.ID); err != nil {
		// The report write already landed, do not fail the message.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", p.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced piggy bank to report",
		"id", p.ID, "sheets_ref", ref, "title", p.Title,
		"amount_cents", p.AmountCents, "goal_cents", p.GoalCents)
	return nil
}
