package http

import (
	"errors"
	"log/slog"
	"net/http"

	"duit/internal/core"
	"duit/internal/services"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	username := sanitizeInput(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	usr, err := s.auth.Login(r.Context(), username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		slog.ErrorContext(r.Context(), "Login failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.sessions.create(usr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	slog.InfoContext(r.Context(), "User logged in",
		"user_id", usr.ID,
		"username", usr.Username,
		"role", usr.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user(usr)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if token := bearerToken(r); token != "" {
		s.sessions.revoke(token)
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// requireSession resolves the bearer token to a user or writes 401.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return core.User{}, false
	}
	usr, ok := s.sessions.lookup(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return core.User{}, false
	}
	return usr, true
}
