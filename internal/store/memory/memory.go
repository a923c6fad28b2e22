// Package memory implements the store ports in process. It backs dev
// mode when no upstream API is configured and doubles as the fake in
// service tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"duit/internal/core"
)

type Store struct {
	mu    sync.RWMutex
	txs   []core.Transaction
	users []core.Credential
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) FetchTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *Store) ReplaceTransactions(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = make([]core.Transaction, len(txs))
	copy(s.txs, txs)
	return nil
}

func (s *Store) FetchUsers(_ context.Context) ([]core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Credential, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, cred core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == cred.Username {
			return fmt.Errorf("username %q already taken", cred.Username)
		}
	}
	s.users = append(s.users, cred)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.users {
		if existing.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("user %s not found", id)
}
