package http

import (
	"errors"
	"log/slog"
	"net/http"

	"duit/internal/core"
	"duit/internal/services"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listUsers(w, r, usr)
	case http.MethodPost:
		s.createUser(w, r, usr)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, actor core.User) {
	users, err := s.auth.Users(r.Context(), actor)
	if err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			writeError(w, http.StatusForbidden, "owner account required")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, user(u))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, actor core.User) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	created, err := s.auth.CreateUser(r.Context(), actor, sanitizeInput(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, "owner account required")
		case errors.Is(err, core.ErrEmptyUsername), errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Failed to create user", "username", req.Username, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	slog.InfoContext(r.Context(), "User created", "user_id", created.ID, "username", created.Username)
	writeJSON(w, http.StatusCreated, user(created))
}

type deleteUserRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req deleteUserRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := s.auth.DeleteUser(r.Context(), actor, req.ID); err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			writeError(w, http.StatusForbidden, "owner account required")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete user", "user_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	slog.InfoContext(r.Context(), "User deleted", "user_id", req.ID)
	writeJSON(w, http.StatusNoContent, nil)
}
