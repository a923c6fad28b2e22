package http

import (
	"errors"
	"log/slog"
	"net/http"

	"duit/internal/core"
	"duit/internal/stats"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if cached, ok := s.statsCache.Get(usr.ID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	st, err := s.transactions.Stats(r.Context(), usr.ID, s.now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute stats", "user_id", usr.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	payload := statsResponse(st)
	s.statsCache.Set(usr.ID, payload)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	window, err := windowParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := usr.ID + "|" + string(window)
	if cached, ok := s.seriesCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	buckets, err := s.transactions.Series(r.Context(), usr.ID, window, s.now())
	if err != nil {
		s.writeSeriesError(w, r, usr, err)
		return
	}

	payload := seriesResponse(window, buckets)
	s.seriesCache.Set(key, payload)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	window, err := windowParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := usr.ID + "|" + string(window)
	if cached, ok := s.breakdownCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	bd, err := s.transactions.Breakdown(r.Context(), usr.ID, window, s.now())
	if err != nil {
		s.writeSeriesError(w, r, usr, err)
		return
	}

	payload := breakdownResponse(window, bd)
	s.breakdownCache.Set(key, payload)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeSeriesError(w http.ResponseWriter, r *http.Request, usr core.User, err error) {
	if errors.Is(err, stats.ErrUnknownWindow) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.ErrorContext(r.Context(), "Failed to build series", "user_id", usr.ID, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to build series")
}
