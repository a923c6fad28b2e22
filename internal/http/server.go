// Package http serves the dashboard JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"duit/internal/cache"
	"duit/internal/services"
	"duit/internal/stats"
)

type Server struct {
	http.Server
	transactions *services.TransactionService
	auth         *services.AuthService
	sessions     *sessionStore
	rateLimiter  *rateLimiter

	statsCache     *cache.LRUCache[statsPayload]
	seriesCache    *cache.LRUCache[seriesPayload]
	breakdownCache *cache.LRUCache[breakdownPayload]
	cleaner        *cache.Manager

	shutdownOnce sync.Once

	// injectable clock for deterministic aggregates in tests
	now func() time.Time
}

// NewServer configures routes and caches, returning a ready-to-run
// http.Server.
func NewServer(addr string, transactions *services.TransactionService, auth *services.AuthService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions:   transactions,
		auth:           auth,
		sessions:       newSessionStore(),
		rateLimiter:    newRateLimiter(60),
		statsCache:     cache.NewLRUCache[statsPayload](100, 5*time.Minute),
		seriesCache:    cache.NewLRUCache[seriesPayload](200, 5*time.Minute),
		breakdownCache: cache.NewLRUCache[breakdownPayload](200, 5*time.Minute),
		cleaner:        cache.NewManager(),
		now:            time.Now,
	}

	s.cleaner.Register(s.statsCache)
	s.cleaner.Register(s.seriesCache)
	s.cleaner.Register(s.breakdownCache)
	s.cleaner.Register(s.sessions)
	s.cleaner.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/api/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/api/logout", s.withSecurityHeaders(s.handleLogout))
	mux.HandleFunc("/api/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/api/transactions/", s.withSecurityHeaders(s.handleTransactionByID))
	mux.HandleFunc("/api/stats", s.withSecurityHeaders(s.handleStats))
	mux.HandleFunc("/api/series", s.withSecurityHeaders(s.handleSeries))
	mux.HandleFunc("/api/breakdown", s.withSecurityHeaders(s.handleBreakdown))
	mux.HandleFunc("/api/users", s.withSecurityHeaders(s.handleUsers))
	mux.HandleFunc("/api/users/delete", s.withSecurityHeaders(s.handleDeleteUser))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	return s
}

func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)
		requestID := generateRequestID()

		slog.InfoContext(r.Context(), "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", ip,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit writes only; dashboard reads are cache-backed.
		if isWrite(r.Method) && !s.rateLimiter.allow(ip) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"request_id", requestID,
				"client_ip", ip,
				"method", r.Method,
				"url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(r.Context(), "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ip)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// invalidateAggregates drops every cached dashboard figure. Called on
// any transaction mutation since they all derive from the collection.
func (s *Server) invalidateAggregates() {
	s.statsCache.Purge()
	s.seriesCache.Purge()
	s.breakdownCache.Purge()
}

// Shutdown stops cleanup goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cleaner.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the local cache answers; the upstream may be
	// down without making the dashboard unavailable.
	if _, err := s.transactions.List(r.Context(), "readyz-probe"); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// windowParam parses the ?window query value, defaulting to the
// 30-day view the dashboard opens with.
func windowParam(r *http.Request) (stats.Window, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return stats.Last30Days, nil
	}
	return stats.ParseWindow(raw)
}
