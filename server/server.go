// Package server exposes the HTTP surface: the public read API, the status
// and billing webhooks, the preference endpoints and operational routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnuragBhanderi/StatusHub-sub001/detect"
	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// Fetcher is the live fetch layer the server reads from.
type Fetcher interface {
	All(ctx context.Context) []*status.Snapshot
	One(ctx context.Context, slug string, bypass bool) (*status.Snapshot, error)
	ResolveCallbackURL(callbackURL string) (*status.ServiceConfig, bool)
	Config(slug string) (*status.ServiceConfig, bool)
}

// Detector runs event detection over a fresh snapshot.
type Detector interface {
	Process(ctx context.Context, snap *status.Snapshot, source status.Source) (*detect.Result, error)
}

// PrefStore manages notification preferences and billing accounts.
type PrefStore interface {
	TokenFromEmail(email string) string
	LoadPreferenceByToken(ctx context.Context, token string) (*status.Preference, error)
	SavePreference(ctx context.Context, pref *status.Preference) error
	SaveAccount(ctx context.Context, account *status.Account) error
}

// IsNotFound checks whether a store error means a missing record.
type IsNotFound func(error) bool

// Server handles HTTP requests.
type Server struct {
	fetcher       Fetcher
	detector      Detector
	prefs         PrefStore
	isNotFound    IsNotFound
	logger        *slog.Logger
	webhookSecret string
	billingSecret string
	registry      *prometheus.Registry
}

// Config holds server configuration.
type Config struct {
	Fetcher       Fetcher
	Detector      Detector
	Prefs         PrefStore
	IsNotFound    IsNotFound
	Logger        *slog.Logger
	WebhookSecret string
	BillingSecret string
	Registry      *prometheus.Registry
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		fetcher:       cfg.Fetcher,
		detector:      cfg.Detector,
		prefs:         cfg.Prefs,
		isNotFound:    cfg.IsNotFound,
		logger:        cfg.Logger,
		webhookSecret: cfg.WebhookSecret,
		billingSecret: cfg.BillingSecret,
		registry:      cfg.Registry,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /services", s.handleListServices)
	mux.HandleFunc("GET /services/{slug}", s.handleServiceDetail)
	mux.HandleFunc("POST /pollz", s.handlePoll)
	mux.HandleFunc("POST /webhooks/status", s.handleStatusWebhook)
	mux.HandleFunc("POST /webhooks/billing", s.handleBillingWebhook)
	mux.HandleFunc("GET /preferences", s.handleGetPreference)
	mux.HandleFunc("PUT /preferences", s.handlePutPreference)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe starts the HTTP server with explicit timeouts to prevent
// resource exhaustion.
func (s *Server) ListenAndServe(port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "port", port)
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
