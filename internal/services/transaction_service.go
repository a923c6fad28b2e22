// Package services orchestrates the domain operations across the
// upstream store, the local SQLite cache and the AMQP sync channel.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"duit/internal/amqp"
	"duit/internal/core"
	"duit/internal/format"
	"duit/internal/stats"
	"duit/internal/storage"
	"duit/internal/store"
)

// TransactionService keeps the local cache authoritative for writes
// and refreshes it from the upstream on reads. Writes bump the local
// revision and announce it over AMQP; the sync worker pushes the full
// snapshot upstream afterwards.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	remote     store.TransactionSource
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, remote store.TransactionSource, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		remote:     remote,
		amqpClient: amqpClient,
	}
}

// List returns the user's transactions, refreshing the cache from the
// upstream first. The refresh is skipped while local writes are still
// waiting to be synced, otherwise a stale upstream snapshot would
// clobber them. An unreachable upstream degrades to the cached copy.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	if err := s.refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Upstream refresh failed, serving cached transactions", "error", err)
	}

	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	mine := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID == userID {
			mine = append(mine, tx)
		}
	}
	return mine, nil
}

func (s *TransactionService) refresh(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}

	local, err := s.storage.LocalRevision(ctx)
	if err != nil {
		return fmt.Errorf("read local revision: %w", err)
	}
	synced, err := s.storage.SyncedRevision(ctx)
	if err != nil {
		return fmt.Errorf("read synced revision: %w", err)
	}
	if local > synced {
		// Unsynced local writes take precedence over the upstream.
		return nil
	}

	txs, err := s.remote.FetchTransactions(ctx)
	if err != nil {
		return fmt.Errorf("fetch upstream transactions: %w", err)
	}
	if err := s.storage.CacheTransactions(ctx, txs); err != nil {
		return fmt.Errorf("cache upstream transactions: %w", err)
	}
	return nil
}

// Create validates and stores a new transaction, then queues a sync.
func (s *TransactionService) Create(ctx context.Context, userID string, kind core.Kind, amount core.Money, description string, date core.Date) (core.Transaction, error) {
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.storage.InsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.queueSync(ctx)
	return tx, nil
}

// Update rewrites all mutable fields of an existing transaction owned
// by the user.
func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.queueSync(ctx)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.storage.DeleteTransaction(ctx, id, userID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.queueSync(ctx)
	return nil
}

// Stats computes the dashboard headline figures for the user.
func (s *TransactionService) Stats(ctx context.Context, userID string, now time.Time) (stats.Stats, error) {
	txs, err := s.List(ctx, userID)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.ComputeStats(txs, now)
}

// Series builds the chart buckets for a reporting window. Month labels
// use the Indonesian short forms the dashboard renders.
func (s *TransactionService) Series(ctx context.Context, userID string, window stats.Window, now time.Time) ([]stats.Bucket, error) {
	txs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.BuildSeries(txs, window, now, stats.Options{MonthLabel: format.MonthLabel})
}

// Breakdown totals income and expense over a reporting window.
func (s *TransactionService) Breakdown(ctx context.Context, userID string, window stats.Window, now time.Time) (stats.Breakdown, error) {
	txs, err := s.List(ctx, userID)
	if err != nil {
		return stats.Breakdown{}, err
	}
	return stats.BuildBreakdown(txs, window, now)
}

// queueSync bumps the local revision and publishes it. Publish errors
// never fail the request, the periodic catch-up covers them.
func (s *TransactionService) queueSync(ctx context.Context) {
	rev, err := s.storage.BumpLocalRevision(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to bump local revision", "error", err)
		return
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "revision", rev)
		return
	}
	if err := s.amqpClient.PublishSnapshotSync(ctx, rev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "revision", rev, "error", err)
	}
}

// Close releases the storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
