// Package main wires the StatusHub service: it aggregates live status from
// third-party status pages, detects state transitions, and notifies
// subscribed users by email and client-side push.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/AnuragBhanderi/StatusHub-sub001/config"
	"github.com/AnuragBhanderi/StatusHub-sub001/detect"
	"github.com/AnuragBhanderi/StatusHub-sub001/dispatch"
	"github.com/AnuragBhanderi/StatusHub-sub001/email"
	"github.com/AnuragBhanderi/StatusHub-sub001/fetch"
	"github.com/AnuragBhanderi/StatusHub-sub001/metrics"
	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
	"github.com/AnuragBhanderi/StatusHub-sub001/server"
	"github.com/AnuragBhanderi/StatusHub-sub001/storage"
)

func main() {
	ctx := context.Background()
	settings := config.FromEnv()

	logger := newLogger(settings.LogLevel)
	slog.SetDefault(logger)

	catalog, err := config.LoadCatalog(settings.ServicesFile)
	if err != nil {
		logger.Error("Failed to load service catalog", "file", settings.ServicesFile, "error", err)
		os.Exit(1)
	}
	logger.Info("Service catalog loaded", "services", len(catalog.Services))

	store, err := newStore(ctx, settings, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	provider := newEmailProvider(ctx, settings, logger)
	sender := email.New(provider, logger, settings.BaseURL, settings.EmailFrom)

	fetcher := fetch.New(catalog.Services, &http.Client{Timeout: 30 * time.Second}, settings.CacheTTL, logger)
	dispatcher := dispatch.New(store, sender, fetcher, storage.IsNotFound, logger)
	detector := detect.New(store, dispatcher, storage.IsNotFound, logger)

	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	srv := server.New(&server.Config{
		Fetcher:       fetcher,
		Detector:      detector,
		Prefs:         store,
		IsNotFound:    storage.IsNotFound,
		Logger:        logger,
		WebhookSecret: settings.WebhookSecret,
		BillingSecret: settings.BillingWebhookSecret,
		Registry:      registry,
	})

	go runPollLoop(ctx, fetcher, detector, settings.PollInterval, logger)

	if err := srv.ListenAndServe(settings.Port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// runPollLoop is the scheduled trigger: a fixed-interval sweep over every
// configured service.
func runPollLoop(ctx context.Context, fetcher *fetch.Fetcher, detector *detect.Engine, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Poll loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snaps := fetcher.All(ctx)
			var events, emails int
			for _, snap := range snaps {
				res, err := detector.Process(ctx, snap, status.SourceCron)
				if err != nil {
					logger.Warn("Poll detection failed", "slug", snap.Slug, "error", err)
					continue
				}
				events += len(res.Events)
				emails += res.EmailsSent
			}
			logger.Info("Poll sweep completed", "services", len(snaps), "events", events, "emails_sent", emails)
		}
	}
}

func newLogger(level string) *slog.Logger {
	handlerLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		handlerLevel = slog.LevelDebug
	case "warn":
		handlerLevel = slog.LevelWarn
	case "error":
		handlerLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel}))
}

// newStore picks local-directory storage for development and a GCS bucket in
// production, exactly one of which must be configured.
func newStore(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*storage.Store, error) {
	salt := []byte(settings.TokenSalt)
	if len(salt) == 0 {
		logger.Warn("TOKEN_SALT not set, using development salt; tokens are guessable")
		salt = []byte("statushub-dev-salt")
	}

	localPath := settings.LocalStorage
	if settings.StorageBucket == "" && localPath == "" {
		localPath = "./data"
		logger.Info("No STORAGE_BUCKET set, defaulting to local development mode", "storage_path", localPath)
	}
	if localPath != "" {
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return nil, err
		}
		return storage.New(nil, "", localPath, salt, logger), nil
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return storage.New(client, settings.StorageBucket, "", salt, logger), nil
}

// newEmailProvider prefers Brevo when an API key is set, then the Gmail API,
// then falls back to mock delivery for local development.
func newEmailProvider(ctx context.Context, settings *config.Settings, logger *slog.Logger) email.Provider {
	if settings.BrevoAPIKey != "" {
		logger.Info("Using Brevo email provider", "from", settings.EmailFrom)
		return email.NewBrevoProvider(settings.BrevoAPIKey, settings.EmailFrom, settings.EmailFromName, logger)
	}

	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS_JSON"); credsJSON != "" {
		service, err := gmail.NewService(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
		if err != nil {
			logger.Warn("Failed to initialize Gmail service, using mock email", "error", err)
			return email.NewMockProvider(logger)
		}
		logger.Info("Using Gmail email provider")
		return email.NewGmailProvider(service, logger)
	}

	logger.Info("Mock email mode enabled (no email credentials configured)")
	return email.NewMockProvider(logger)
}
