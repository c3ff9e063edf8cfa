// Package http serves the calendar JSON API: pacing reports, per-day
// entries, settings, sheet sync, and the authenticated account glue
// (usage tracking, billing portal).
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pacecal/internal/auth"
	"pacecal/internal/billing"
	"pacecal/internal/crm"
	applog "pacecal/internal/log"
	"pacecal/internal/tracker"
	"pacecal/internal/worker"
)

// Deps carries the server's collaborators. Tracker is required; the rest
// are optional and their endpoints degrade when absent.
type Deps struct {
	Tracker *tracker.Tracker
	Worker  *worker.SyncWorker
	Auth    *auth.Verifier
	CRM     *crm.Client
	Billing *billing.Client
	Events  EventPublisher

	// AllowedOrigins is the CORS whitelist. Empty allows any origin.
	AllowedOrigins []string
}

type Server struct {
	http.Server

	tracker *tracker.Tracker
	worker  *worker.SyncWorker
	auth    *auth.Verifier
	crm     *crm.Client
	billing *billing.Client
	events  EventPublisher

	rateLimiter  *rateLimiter
	cors         *corsPolicy
	httpLog      *applog.StructuredLogger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()
	httpLogger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.Default().Handler(),
	})

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           applog.Middleware(httpLogger)(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracker:     deps.Tracker,
		worker:      deps.Worker,
		auth:        deps.Auth,
		crm:         deps.CRM,
		billing:     deps.Billing,
		events:      deps.Events,
		rateLimiter: newRateLimiter(),
		cors:        newCORSPolicy(deps.AllowedOrigins),
		httpLog:     applog.NewStructuredLogger(httpLogger),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Preflights never match the method-scoped routes below.
	mux.HandleFunc("OPTIONS /api/", s.wrap(func(w http.ResponseWriter, r *http.Request) {}))

	mux.HandleFunc("GET /api/report", s.wrap(s.handleReport))

	mux.HandleFunc("GET /api/days/{day}/entries", s.wrap(s.handleListEntries))
	mux.HandleFunc("POST /api/days/{day}/entries", s.wrap(s.handleAddEntry))
	mux.HandleFunc("PUT /api/days/{day}/entries/{index}", s.wrap(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/days/{day}/entries/{index}", s.wrap(s.handleDeleteEntry))

	mux.HandleFunc("GET /api/settings", s.wrap(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.wrap(s.handlePutSettings))

	mux.HandleFunc("GET /api/sync", s.wrap(s.handleSyncStatus))
	mux.HandleFunc("POST /api/sync", s.wrap(s.handleSync))

	mux.HandleFunc("POST /api/track-usage", s.wrap(s.authed(s.handleTrackUsage)))
	mux.HandleFunc("POST /api/billing-portal", s.wrap(s.authed(s.handleBillingPortal)))

	return s
}

// wrap applies the standard middleware chain: CORS, security headers,
// request IDs, rate limiting on mutations, and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		if done := s.cors.apply(w, r); done {
			return
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		reqLogger := applog.FromContext(ctx).With(applog.FieldRequestID, requestID)
		ctx = context.WithValue(ctx, applog.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// authed gates a handler behind token verification when auth is
// configured; without a verifier the handler runs open (local use).
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	if s.auth == nil {
		return next
	}
	gated := s.auth.Middleware(next)
	return gated.ServeHTTP
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
