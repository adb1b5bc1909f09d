// Package config loads the service catalog and deployment settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
	"github.com/AnuragBhanderi/StatusHub-sub001/provider"
)

// Catalog is the static list of monitored services.
type Catalog struct {
	Services []*status.ServiceConfig `yaml:"services"`
}

// LoadCatalog reads and validates the YAML service catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse services yaml: %w", err)
	}
	if len(catalog.Services) == 0 {
		return nil, fmt.Errorf("service catalog is empty")
	}

	seen := make(map[string]bool, len(catalog.Services))
	for _, svc := range catalog.Services {
		if svc.Slug == "" {
			return nil, fmt.Errorf("service %q has no slug", svc.Name)
		}
		if seen[svc.Slug] {
			return nil, fmt.Errorf("duplicate service slug %q", svc.Slug)
		}
		seen[svc.Slug] = true
		if svc.BaseURL == "" {
			return nil, fmt.Errorf("service %q has no baseURL", svc.Slug)
		}
		if svc.Provider == "" {
			svc.Provider = provider.KindStatuspage
		}
		if !provider.KnownKind(svc.Provider) {
			return nil, fmt.Errorf("service %q has unknown provider kind %q", svc.Slug, svc.Provider)
		}
	}
	return &catalog, nil
}

// Settings are the deployment knobs, read from the environment with
// local-development defaults.
type Settings struct {
	Port                 string
	BaseURL              string
	StorageBucket        string
	LocalStorage         string
	ServicesFile         string
	WebhookSecret        string
	BillingWebhookSecret string
	TokenSalt            string
	BrevoAPIKey          string
	EmailFrom            string
	EmailFromName        string
	PollInterval         time.Duration
	CacheTTL             time.Duration
	LogLevel             string
}

// FromEnv reads settings from the environment.
func FromEnv() *Settings {
	s := &Settings{
		Port:                 envOr("PORT", "8080"),
		BaseURL:              os.Getenv("BASE_URL"),
		StorageBucket:        os.Getenv("STORAGE_BUCKET"),
		LocalStorage:         os.Getenv("LOCAL_STORAGE"),
		ServicesFile:         envOr("SERVICES_FILE", "services.yaml"),
		WebhookSecret:        os.Getenv("WEBHOOK_SECRET"),
		BillingWebhookSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
		TokenSalt:            os.Getenv("TOKEN_SALT"),
		BrevoAPIKey:          os.Getenv("BREVO_API_KEY"),
		EmailFrom:            os.Getenv("EMAIL_FROM"),
		EmailFromName:        envOr("EMAIL_FROM_NAME", "StatusHub"),
		PollInterval:         durationOr("POLL_INTERVAL", 5*time.Minute),
		CacheTTL:             durationOr("CACHE_TTL", time.Minute),
		LogLevel:             envOr("LOG_LEVEL", "info"),
	}
	if s.BaseURL == "" {
		s.BaseURL = "http://localhost:" + s.Port
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
