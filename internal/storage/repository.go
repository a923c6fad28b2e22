// Package storage is the local SQLite cache. It holds the last known
// copy of the upstream collections so the dashboard keeps working when
// the upstream API is unreachable, plus the revision counters the sync
// worker uses to decide when a push is due.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"duit/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CacheTransactions replaces the cached collection with a fresh
// upstream snapshot. Revision counters are left alone.
func (r *SQLiteRepository) CacheTransactions(ctx context.Context, txs []core.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	for _, tx := range txs {
		if err := insertTransaction(ctx, dbTx, tx); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit cached transactions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount_units, description, occurred_on, created_at
		FROM transactions
		ORDER BY occurred_on, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	if err := insertTransaction(ctx, r.db, tx); err != nil {
		return err
	}
	return nil
}

// UpdateTransaction rewrites every mutable field of a transaction. The
// user id acts as an ownership guard in the WHERE clause.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET kind = ?, amount_units = ?, description = ?, occurred_on = ?
		WHERE id = ? AND user_id = ?`,
		string(tx.Kind), tx.Amount.Units, tx.Description, tx.Date.ISO(), tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	return requireRow(res, tx.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (r *SQLiteRepository) CacheUsers(ctx context.Context, creds []core.Credential) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	for _, cred := range creds {
		if err := insertUser(ctx, dbTx, cred); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit cached users: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, password, role, created_at
		FROM users
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var creds []core.Credential
	for rows.Next() {
		var cred core.Credential
		var role, createdAt string
		if err := rows.Scan(&cred.ID, &cred.Username, &cred.Password, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		cred.Role = core.Role(role)
		ts, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse user %s created_at: %w", cred.ID, err)
		}
		cred.CreatedAt = ts
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return creds, nil
}

func (r *SQLiteRepository) InsertUser(ctx context.Context, cred core.Credential) error {
	return insertUser(ctx, r.db, cred)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return requireRow(res, id)
}

// BumpLocalRevision increments the local revision and returns the new
// value. Every local mutation calls this so the sync worker can tell
// the cache is ahead of the upstream.
func (r *SQLiteRepository) BumpLocalRevision(ctx context.Context) (int64, error) {
	rev, err := r.revision(ctx, "local_revision")
	if err != nil {
		return 0, err
	}
	rev++
	if err := r.setRevision(ctx, "local_revision", rev); err != nil {
		return 0, err
	}
	return rev, nil
}

func (r *SQLiteRepository) LocalRevision(ctx context.Context) (int64, error) {
	return r.revision(ctx, "local_revision")
}

func (r *SQLiteRepository) SyncedRevision(ctx context.Context) (int64, error) {
	return r.revision(ctx, "synced_revision")
}

// MarkSynced records that the upstream now holds the given revision.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, rev int64) error {
	return r.setRevision(ctx, "synced_revision", rev)
}

func (r *SQLiteRepository) revision(ctx context.Context, key string) (int64, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	rev, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return rev, nil
}

func (r *SQLiteRepository) setRevision(ctx context.Context, key string, rev int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, strconv.FormatInt(rev, 10))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransaction(ctx context.Context, db execer, tx core.Transaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_units, description, occurred_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Kind), tx.Amount.Units, tx.Description,
		tx.Date.ISO(), tx.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func insertUser(ctx context.Context, db execer, cred core.Credential) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		cred.ID, cred.Username, cred.Password, string(cred.Role),
		cred.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert user %s: %w", cred.ID, err)
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var tx core.Transaction
	var kind, occurredOn, createdAt string
	if err := rows.Scan(&tx.ID, &tx.UserID, &kind, &tx.Amount.Units, &tx.Description, &occurredOn, &createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Kind = core.Kind(kind)

	date, err := core.ParseDate(occurredOn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction %s date: %w", tx.ID, err)
	}
	tx.Date = date

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction %s created_at: %w", tx.ID, err)
	}
	tx.CreatedAt = ts
	return tx, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
