// Package fetch retrieves raw provider data for configured services,
// normalizes it, and caches the resulting snapshots with a TTL. Concurrent
// fetches for the same slug are coalesced into one upstream call.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/AnuragBhanderi/StatusHub-sub001/metrics"
	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
	"github.com/AnuragBhanderi/StatusHub-sub001/provider"
)

// ErrUnknownService is returned when a slug has no catalog entry.
var ErrUnknownService = errors.New("unknown service")

const (
	// DefaultTTL keeps cached snapshots fresh enough that a missed poll
	// never serves critically stale data. It must stay below the poll
	// interval.
	DefaultTTL = 60 * time.Second

	maxConcurrentFetches = 8
	maxPayloadBytes      = 4 << 20
)

type cacheEntry struct {
	snap    *status.Snapshot
	expires time.Time
}

// Fetcher is the live fetch layer. It is constructed once per process and
// injected wherever snapshots are needed; the cache it owns is the only
// fetch-level shared state.
type Fetcher struct {
	services map[string]*status.ServiceConfig
	order    []string // catalog order for stable FetchAll output
	client   *http.Client
	logger   *slog.Logger
	ttl      time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry

	group singleflight.Group
}

// New creates a fetcher over the given service catalog.
func New(services []*status.ServiceConfig, client *http.Client, ttl time.Duration, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	byName := make(map[string]*status.ServiceConfig, len(services))
	order := make([]string, 0, len(services))
	for _, svc := range services {
		byName[svc.Slug] = svc
		order = append(order, svc.Slug)
	}
	return &Fetcher{
		services: byName,
		order:    order,
		client:   client,
		logger:   logger,
		ttl:      ttl,
		cache:    make(map[string]cacheEntry, len(services)),
	}
}

// Config returns the catalog entry for slug.
func (f *Fetcher) Config(slug string) (*status.ServiceConfig, bool) {
	svc, ok := f.services[slug]
	return svc, ok
}

// ResolveCallbackURL maps a provider-reported status_url back to a catalog
// entry. Used by the webhook trigger to identify which service fired.
func (f *Fetcher) ResolveCallbackURL(callbackURL string) (*status.ServiceConfig, bool) {
	normalized := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(callbackURL)), "/")
	if normalized == "" {
		return nil, false
	}
	for _, slug := range f.order {
		svc := f.services[slug]
		base := strings.TrimSuffix(strings.ToLower(svc.BaseURL), "/")
		if base != "" && (normalized == base || strings.HasPrefix(normalized, base+"/")) {
			return svc, true
		}
	}
	return nil, false
}

// All fetches a snapshot for every configured service. A failure for one slug
// yields an error-marked snapshot for that slug and never aborts the others.
func (f *Fetcher) All(ctx context.Context) []*status.Snapshot {
	results := make([]*status.Snapshot, len(f.order))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, slug := range f.order {
		g.Go(func() error {
			snap, err := f.One(ctx, slug, false)
			if err != nil {
				f.logger.Warn("Service fetch failed", "slug", slug, "error", err)
				snap = &status.Snapshot{
					Slug:      slug,
					Status:    status.Unknown,
					Error:     err.Error(),
					FetchedAt: time.Now(),
				}
			}
			results[i] = snap
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are per-slug entries

	return results
}

// One returns the snapshot for slug, from cache when fresh. bypass forces a
// network fetch and refreshes the cache so subsequent readers benefit too.
// Concurrent callers for the same slug share one in-flight fetch.
func (f *Fetcher) One(ctx context.Context, slug string, bypass bool) (*status.Snapshot, error) {
	svc, ok := f.services[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, slug)
	}

	if !bypass {
		if snap, ok := f.cached(slug); ok {
			return snap, nil
		}
	}

	key := slug
	if bypass {
		// Bypass callers must not be served an in-flight cached-path result.
		key = slug + "!fresh"
	}
	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.fetch(ctx, svc)
	})
	if err != nil {
		metrics.ObserveFetch(slug, false, 0)
		return nil, err
	}
	snap := v.(*status.Snapshot)
	f.store(slug, snap)
	return snap, nil
}

func (f *Fetcher) cached(slug string) (*status.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.cache[slug]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.snap, true
}

func (f *Fetcher) store(slug string, snap *status.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[slug] = cacheEntry{snap: snap, expires: time.Now().Add(f.ttl)}
}

func statusURL(svc *status.ServiceConfig) string {
	if svc.StatusURL != "" {
		return svc.StatusURL
	}
	base := strings.TrimSuffix(svc.BaseURL, "/")
	if svc.Provider == provider.KindStatuspage {
		return base + provider.SummaryPath
	}
	return base
}

func (f *Fetcher) fetch(ctx context.Context, svc *status.ServiceConfig) (*status.Snapshot, error) {
	fetchURL := statusURL(svc)

	var snap *status.Snapshot
	started := time.Now()
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, http.NoBody)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("User-Agent", "statushub/1.0 (+status aggregation)")
			req.Header.Set("Accept", "application/json, text/html;q=0.5")

			reqStart := time.Now()
			resp, err := f.client.Do(req)
			duration := time.Since(reqStart)
			if err != nil {
				f.logger.Warn("Provider request failed, will retry",
					"slug", svc.Slug,
					"url", fetchURL,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					f.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				f.logger.Warn("Provider returned non-OK status, will retry",
					"slug", svc.Slug,
					"status_code", resp.StatusCode)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			body := io.LimitReader(resp.Body, maxPayloadBytes)
			now := time.Now()
			switch svc.Provider {
			case provider.KindHTML:
				snap, err = provider.ParseHTML(body, svc.Slug, now)
			default:
				snap, err = provider.ParseStatuspage(body, svc.Slug, now)
			}
			if err != nil {
				f.logger.Warn("Failed to parse provider payload, will retry",
					"slug", svc.Slug, "error", err)
				return err
			}

			f.logger.Debug("Provider snapshot fetched",
				"slug", svc.Slug,
				"status", snap.Status,
				"incidents", len(snap.Incidents),
				"duration_ms", duration.Milliseconds())
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(15*time.Second),
		retry.MaxJitter(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Info("Retrying provider fetch after error", "slug", svc.Slug, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s after retries: %w", svc.Slug, err)
	}

	metrics.ObserveFetch(svc.Slug, true, time.Since(started))
	return snap, nil
}
