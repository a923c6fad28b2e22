package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"duit/internal/core"
	"duit/internal/storage"
	"duit/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotOwner           = errors.New("operation requires the owner account")
)

// ownerID is fixed so the owner's transactions stay attached across
// restarts even though the owner never exists in the user directory.
const ownerID = "owner"

// AuthService checks credentials and manages the user directory. The
// owner account comes from configuration and is never stored upstream;
// regular users live in the upstream directory with the SQLite cache
// as fallback.
type AuthService struct {
	storage   *storage.SQLiteRepository
	directory store.UserDirectory
	ownerName string
	ownerPass string
}

func NewAuthService(storage *storage.SQLiteRepository, directory store.UserDirectory, ownerName, ownerPass string) *AuthService {
	return &AuthService{
		storage:   storage,
		directory: directory,
		ownerName: ownerName,
		ownerPass: ownerPass,
	}
}

// Login resolves a username and password to a user. The owner
// credential is checked first, then the directory.
func (s *AuthService) Login(ctx context.Context, username, password string) (core.User, error) {
	if username == s.ownerName && password == s.ownerPass {
		return core.User{
			ID:       ownerID,
			Username: s.ownerName,
			Role:     core.RoleOwner,
		}, nil
	}

	creds, err := s.credentials(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("load credentials: %w", err)
	}
	for _, cred := range creds {
		if cred.Username == username && cred.Password == password {
			return cred.User, nil
		}
	}
	return core.User{}, ErrInvalidCredentials
}

// credentials loads the directory upstream-first with cache fallback.
func (s *AuthService) credentials(ctx context.Context) ([]core.Credential, error) {
	if s.directory != nil {
		creds, err := s.directory.FetchUsers(ctx)
		if err == nil {
			if cacheErr := s.storage.CacheUsers(ctx, creds); cacheErr != nil {
				slog.WarnContext(ctx, "Failed to cache users", "error", cacheErr)
			}
			return creds, nil
		}
		slog.WarnContext(ctx, "Upstream user fetch failed, using cached users", "error", err)
	}
	return s.storage.ListUsers(ctx)
}

// Users lists directory accounts without passwords. Owner only.
func (s *AuthService) Users(ctx context.Context, actor core.User) ([]core.User, error) {
	if actor.Role != core.RoleOwner {
		return nil, ErrNotOwner
	}

	creds, err := s.credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	users := make([]core.User, 0, len(creds))
	for _, cred := range creds {
		users = append(users, cred.User)
	}
	return users, nil
}

// CreateUser provisions a regular account. Owner only. The upstream
// write must succeed; the cache copy is best effort.
func (s *AuthService) CreateUser(ctx context.Context, actor core.User, username, password string) (core.User, error) {
	if actor.Role != core.RoleOwner {
		return core.User{}, ErrNotOwner
	}
	if password == "" {
		return core.User{}, fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}

	cred := core.Credential{
		User: core.User{
			ID:        uuid.NewString(),
			Username:  username,
			Role:      core.RoleUser,
			CreatedAt: time.Now().UTC(),
		},
		Password: password,
	}
	if err := cred.User.Validate(); err != nil {
		return core.User{}, err
	}

	if s.directory == nil {
		return core.User{}, errors.New("user directory not configured")
	}
	if err := s.directory.CreateUser(ctx, cred); err != nil {
		return core.User{}, fmt.Errorf("create user upstream: %w", err)
	}

	if err := s.storage.InsertUser(ctx, cred); err != nil {
		slog.WarnContext(ctx, "Failed to cache new user", "username", username, "error", err)
	}
	return cred.User, nil
}

// DeleteUser removes a regular account. Owner only.
func (s *AuthService) DeleteUser(ctx context.Context, actor core.User, id string) error {
	if actor.Role != core.RoleOwner {
		return ErrNotOwner
	}
	if id == ownerID {
		return errors.New("owner account cannot be deleted")
	}

	if s.directory == nil {
		return errors.New("user directory not configured")
	}
	if err := s.directory.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user upstream: %w", err)
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Failed to drop cached user", "user_id", id, "error", err)
	}
	return nil
}
