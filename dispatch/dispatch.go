// Package dispatch routes detected events to the users subscribed to the
// affected service, honoring per-user channel and severity preferences.
package dispatch

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/AnuragBhanderi/StatusHub-sub001/metrics"
	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// Store resolves the notification fan-out set.
type Store interface {
	ProjectsForSlug(ctx context.Context, slug string) ([]*status.Project, error)
	LoadPreference(ctx context.Context, email string) (*status.Preference, error)
	TokenFromEmail(email string) string
}

// IsNotFound reports whether a Store error means "no record".
type IsNotFound func(error) bool

// Sender delivers one rendered event email.
type Sender interface {
	SendEvent(ctx context.Context, to, token string, svc *status.ServiceConfig, ev status.Event) error
}

// Catalog looks up service configuration by slug.
type Catalog interface {
	Config(slug string) (*status.ServiceConfig, bool)
}

// Dispatcher fans detected events out to eligible users. Each Dispatch call
// delivers each event at most once per user; cross-call dedup is the
// detection engine's job (it never re-emits an event).
type Dispatcher struct {
	store      Store
	sender     Sender
	catalog    Catalog
	isNotFound IsNotFound
	logger     *slog.Logger
}

// New creates a dispatcher.
func New(store Store, sender Sender, catalog Catalog, isNotFound IsNotFound, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		sender:     sender,
		catalog:    catalog,
		isNotFound: isNotFound,
		logger:     logger,
	}
}

// Dispatch delivers events for slug to every eligible subscriber and returns
// the number of emails sent. Failures for one recipient never block the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, slug string, events []status.Event) int {
	if len(events) == 0 {
		return 0
	}

	svc, ok := d.catalog.Config(slug)
	if !ok {
		d.logger.Warn("Dispatch requested for unknown service", "slug", slug)
		return 0
	}

	recipients, err := d.interestedUsers(ctx, slug)
	if err != nil {
		d.logger.Error("Failed to resolve subscribers", "slug", slug, "error", err)
		return 0
	}
	if len(recipients) == 0 {
		return 0
	}

	// One correlation id per dispatch run, so all sends for one event batch
	// can be traced together.
	runID := uuid.NewString()
	d.logger.Info("Dispatching events",
		"slug", slug,
		"events", len(events),
		"subscribers", len(recipients),
		"dispatch_id", runID)

	var sent, failed int
	for _, user := range recipients {
		pref, err := d.preference(ctx, user)
		if err != nil {
			d.logger.Warn("Failed to load preference, skipping user",
				"user", user, "dispatch_id", runID, "error", err)
			continue
		}
		if !pref.EmailEnabled {
			continue
		}

		token := d.store.TokenFromEmail(user)
		for _, ev := range events {
			if !status.MeetsThreshold(ev.Severity(), pref.Threshold) {
				d.logger.Debug("Event below user threshold",
					"user", user,
					"kind", ev.Kind(),
					"severity", ev.Severity(),
					"threshold", pref.Threshold)
				continue
			}

			if err := d.sender.SendEvent(ctx, pref.Recipient(), token, svc, ev); err != nil {
				failed++
				metrics.ObserveEmail(false)
				d.logger.Warn("Email delivery failed",
					"to", pref.Recipient(),
					"slug", slug,
					"kind", ev.Kind(),
					"dispatch_id", runID,
					"error", err)
				continue
			}
			sent++
			metrics.ObserveEmail(true)
		}
	}

	d.logger.Info("Dispatch completed",
		"slug", slug,
		"sent", sent,
		"failed", failed,
		"dispatch_id", runID)
	return sent
}

// interestedUsers returns the deduplicated, ordered set of users with slug in
// some project.
func (d *Dispatcher) interestedUsers(ctx context.Context, slug string) ([]string, error) {
	projects, err := d.store.ProjectsForSlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(projects))
	var users []string
	for _, p := range projects {
		if p.OwnerEmail == "" || seen[p.OwnerEmail] {
			continue
		}
		seen[p.OwnerEmail] = true
		users = append(users, p.OwnerEmail)
	}
	sort.Strings(users)
	return users, nil
}

// preference loads a user's preference, falling back to safe defaults when
// none is stored: email off (never notify someone who did not opt in), no
// severity floor.
func (d *Dispatcher) preference(ctx context.Context, user string) (*status.Preference, error) {
	pref, err := d.store.LoadPreference(ctx, user)
	if err != nil {
		if d.isNotFound != nil && d.isNotFound(err) {
			return &status.Preference{
				Email:       user,
				PushEnabled: true,
				Threshold:   status.ThresholdAll,
			}, nil
		}
		return nil, err
	}
	return pref, nil
}
