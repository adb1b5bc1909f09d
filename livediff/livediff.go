// Package livediff is the in-browser companion to the server-side pipeline:
// it re-derives "did a tracked service just change status" purely from polled
// snapshots and shows native notifications. It keeps its own short-lived
// baseline, independent of the server's persisted one.
package livediff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// Permission mirrors the native notification permission states.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDefault Permission = "default"
	PermissionDenied  Permission = "denied"
)

// ErrPermissionDenied means the user has denied notifications; the feature
// must be disabled visibly, not silently.
var ErrPermissionDenied = errors.New("notification permission denied")

// Notification is one displayed alert.
type Notification struct {
	Slug  string
	Title string
	Body  string
}

// Notifier abstracts the native notification primitive.
type Notifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n *Notification) error
}

// ReadAPI is the public read endpoint the watcher polls.
type ReadAPI interface {
	Services(ctx context.Context) ([]*status.Snapshot, error)
}

// Watcher owns the poll-and-diff loop for one session. All state lives here
// and is updated only at poll boundaries.
type Watcher struct {
	api      ReadAPI
	notifier Notifier
	logger   *slog.Logger

	tracked map[string]bool
	last    map[string]status.Status
	seeded  bool
}

// New creates a watcher over the given tracked slugs.
func New(api ReadAPI, notifier Notifier, tracked []string, logger *slog.Logger) *Watcher {
	trackedSet := make(map[string]bool, len(tracked))
	for _, slug := range tracked {
		trackedSet[slug] = true
	}
	return &Watcher{
		api:      api,
		notifier: notifier,
		logger:   logger,
		tracked:  trackedSet,
		last:     make(map[string]status.Status),
	}
}

// Enable checks the notification permission before the watcher may show
// anything. A default permission triggers a request; a denial is surfaced to
// the caller so the UI can reflect it.
func (w *Watcher) Enable(ctx context.Context) error {
	perm := w.notifier.Permission()
	if perm == PermissionDefault {
		requested, err := w.notifier.RequestPermission(ctx)
		if err != nil {
			return fmt.Errorf("request notification permission: %w", err)
		}
		perm = requested
	}
	if perm != PermissionGranted {
		return ErrPermissionDenied
	}
	return nil
}

// SetTracked replaces the tracked set. Because the baseline map is refreshed
// for every service on every poll, newly tracked slugs diff against a fresh
// baseline, never a stale one.
func (w *Watcher) SetTracked(slugs []string) {
	trackedSet := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		trackedSet[slug] = true
	}
	w.tracked = trackedSet
}

// Poll performs one poll-and-diff cycle. The first poll only seeds the
// baseline: pre-existing incidents never notify on page load.
func (w *Watcher) Poll(ctx context.Context) error {
	snaps, err := w.api.Services(ctx)
	if err != nil {
		return fmt.Errorf("poll services: %w", err)
	}

	if !w.seeded {
		for _, snap := range snaps {
			w.last[snap.Slug] = snap.Status
		}
		w.seeded = true
		w.logger.Debug("Live diff baseline seeded", "services", len(snaps))
		return nil
	}

	for _, snap := range snaps {
		prev, known := w.last[snap.Slug]
		if known && w.tracked[snap.Slug] && snap.Status != prev {
			n := &Notification{
				Slug:  snap.Slug,
				Title: fmt.Sprintf("%s is now %s", snap.Slug, snap.Status.Label()),
				Body:  fmt.Sprintf("Status changed from %s to %s", prev.Label(), snap.Status.Label()),
			}
			if err := w.notifier.Show(ctx, n); err != nil {
				w.logger.Warn("Failed to show notification", "slug", snap.Slug, "error", err)
			}
		}
	}

	// Refresh every entry, tracked or not, so tracking-set changes never
	// diff against stale data.
	for _, snap := range snaps {
		w.last[snap.Slug] = snap.Status
	}
	return nil
}

// Run polls on the given interval until the context ends.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Live diff watcher stopping", "error", ctx.Err())
			return
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				w.logger.Warn("Live diff poll failed", "error", err)
			}
		}
	}
}
