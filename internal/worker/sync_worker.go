// Package worker pushes the local transaction cache to the upstream
// store. Sync messages trigger a push immediately; a periodic catch-up
// covers lost messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"duit/internal/amqp"
	"duit/internal/storage"
	"duit/internal/store"
)

type SyncWorker struct {
	storage *storage.SQLiteRepository
	sink    store.TransactionSink
}

func NewSyncWorker(storage *storage.SQLiteRepository, sink store.TransactionSink) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		sink:    sink,
	}
}

// HandleSyncMessage pushes the snapshot announced by a sync message.
// Messages for revisions already synced are acknowledged without a
// push, which makes redelivery harmless.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "revision", msg.Revision)

	synced, err := w.storage.SyncedRevision(ctx)
	if err != nil {
		return fmt.Errorf("read synced revision: %w", err)
	}
	if msg.Revision <= synced {
		slog.InfoContext(ctx, "Revision already synced, skipping",
			"revision", msg.Revision,
			"synced", synced)
		return nil
	}

	return w.push(ctx)
}

// ProcessPending pushes the snapshot if the cache moved ahead of the
// upstream. Backup for lost sync messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	local, err := w.storage.LocalRevision(ctx)
	if err != nil {
		return fmt.Errorf("read local revision: %w", err)
	}
	synced, err := w.storage.SyncedRevision(ctx)
	if err != nil {
		return fmt.Errorf("read synced revision: %w", err)
	}
	if local <= synced {
		return nil
	}

	slog.InfoContext(ctx, "Catching up pending sync",
		"local", local,
		"synced", synced)
	return w.push(ctx)
}

// push replaces the upstream collection with the full local snapshot
// and records the revision it carried. Reading the revision before the
// snapshot keeps a concurrent write from being marked synced early.
func (w *SyncWorker) push(ctx context.Context) error {
	local, err := w.storage.LocalRevision(ctx)
	if err != nil {
		return fmt.Errorf("read local revision: %w", err)
	}

	txs, err := w.storage.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := w.sink.ReplaceTransactions(ctx, txs); err != nil {
		return fmt.Errorf("push snapshot upstream: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, local); err != nil {
		return fmt.Errorf("mark revision synced: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot pushed upstream",
		"revision", local,
		"transactions", len(txs))
	return nil
}

// RunPeriodicCatchUp calls ProcessPending on every tick until the
// context is cancelled.
func (w *SyncWorker) RunPeriodicCatchUp(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic catch-up failed", "error", err)
			}
		}
	}
}
