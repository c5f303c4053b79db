// Package http exposes the JSON API: auth, record CRUD, dashboard
// aggregates, the calendar projection, and a live snapshot feed.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"submanager/internal/auth"
	"submanager/internal/cache"
	"submanager/internal/services"
	"submanager/internal/store"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeySession
)

type Server struct {
	http.Server

	auth          *auth.Service
	subscriptions *services.SubscriptionService
	expenses      *services.ExpenseService
	records       *store.RecordStore

	rateLimiter *rateLimiter

	// Per-user caches for the derived dashboard views, invalidated on
	// every confirmed mutation.
	summaryCache    *cache.LRUCache[summaryResponse]
	projectionCache *cache.LRUCache[projectionResponse]
	cacheManager    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, subs *services.SubscriptionService, exps *services.ExpenseService, records *store.RecordStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:            authSvc,
		subscriptions:   subs,
		expenses:        exps,
		records:         records,
		rateLimiter:     newRateLimiter(),
		summaryCache:    cache.NewLRUCache[summaryResponse](500, 5*time.Minute),
		projectionCache: cache.NewLRUCache[projectionResponse](500, 5*time.Minute),
		cacheManager:    cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.projectionCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/signup", s.withCommon(s.handleSignup))
	mux.HandleFunc("POST /api/login", s.withCommon(s.handleLogin))

	mux.HandleFunc("GET /api/subscriptions", s.withCommon(s.withSession(s.handleListSubscriptions)))
	mux.HandleFunc("POST /api/subscriptions", s.withCommon(s.withSession(s.handleCreateSubscription)))
	mux.HandleFunc("PUT /api/subscriptions/{id}", s.withCommon(s.withSession(s.handleUpdateSubscription)))
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.withCommon(s.withSession(s.handleDeleteSubscription)))

	mux.HandleFunc("GET /api/expenses", s.withCommon(s.withSession(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withCommon(s.withSession(s.handleCreateExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withCommon(s.withSession(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withCommon(s.withSession(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/summary", s.withCommon(s.withSession(s.handleSummary)))
	mux.HandleFunc("GET /api/history", s.withCommon(s.withSession(s.handleHistory)))
	mux.HandleFunc("GET /api/projection", s.withCommon(s.withSession(s.handleProjection)))
	mux.HandleFunc("GET /api/feed", s.withCommon(s.withSession(s.handleFeed)))

	return s
}

// Shutdown stops the cleanup goroutines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withCommon adds security headers, request IDs, rate limiting of mutations,
// and request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// withSession requires a valid bearer token and stores the session in the
// request context.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, err := s.auth.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(r *http.Request) *auth.Session {
	sess, _ := r.Context().Value(ctxKeySession).(*auth.Session)
	return sess
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateDerived drops the cached dashboard views for a user after a
// confirmed mutation.
func (s *Server) invalidateDerived(uid string) {
	s.summaryCache.Delete(uid)
	s.projectionCache.Delete(uid)
}
