package store

import (
	"context"

	"duit/internal/core"
)

// Ports for outbound adapters. The remote HTTP store implements all of
// them; the in-memory store stands in for it in tests and dev mode.
type (
	// TransactionSource reads the full application-wide transaction
	// collection. Scoping to a user happens client-side.
	TransactionSource interface {
		FetchTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// TransactionSink replaces the entire transaction collection.
	// The upstream API has no per-record operations.
	TransactionSink interface {
		ReplaceTransactions(ctx context.Context, txs []core.Transaction) error
	}

	// UserDirectory manages user records, passwords included.
	UserDirectory interface {
		FetchUsers(ctx context.Context) ([]core.Credential, error)
		CreateUser(ctx context.Context, cred core.Credential) error
		DeleteUser(ctx context.Context, id string) error
	}
)
