// Package server exposes the admin HTTP API: rule listing, remote import,
// reload, settings, firing history and health.
package server

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"autoresponder/internal/common/logging"
	"autoresponder/internal/common/ratelimit"
	"autoresponder/internal/engine"
	"autoresponder/internal/history"
	"autoresponder/internal/remote"
	"autoresponder/internal/rules"
	"autoresponder/internal/settings"
)

// Server is the admin API server.
type Server struct {
	store    *rules.Store
	settings *settings.Store
	importer *remote.Importer
	handler  *engine.Handler
	history  *history.Store
	limiter  *ratelimit.KeyedLimiter
	logger   logging.Logger
}

// New creates the admin server. historyStore may be nil when the firing log
// is disabled.
func New(
	store *rules.Store,
	settingsStore *settings.Store,
	importer *remote.Importer,
	handler *engine.Handler,
	historyStore *history.Store,
	limiter *ratelimit.KeyedLimiter,
	logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Server{
		store:    store,
		settings: settingsStore,
		importer: importer,
		handler:  handler,
		history:  historyStore,
		limiter:  limiter,
		logger:   logger,
	}
}

// Router builds the mux router with all admin routes registered.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.rateLimitMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rules", s.GetRules).Methods("GET")
	api.HandleFunc("/rules/reload", s.ReloadRules).Methods("POST")
	api.HandleFunc("/rules/import", s.ImportRules).Methods("POST")
	api.HandleFunc("/settings", s.GetSettings).Methods("GET")
	api.HandleFunc("/settings", s.UpdateSettings).Methods("PUT")
	api.HandleFunc("/messages", s.InjectMessage).Methods("POST")
	api.HandleFunc("/history", s.GetHistory).Methods("GET")
	api.HandleFunc("/stats", s.GetStats).Methods("GET")

	router.HandleFunc("/health", s.HealthCheck).Methods("GET")

	return router
}

// HTTPServer wraps the router in an http.Server with sane timeouts.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// rateLimitMiddleware throttles per remote address.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
