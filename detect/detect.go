// Package detect diffs fresh service snapshots against the persisted
// baseline and produces the deduplicated stream of domain events.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AnuragBhanderi/StatusHub-sub001/metrics"
	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// Store persists the per-slug diff baseline. SaveState must replace the whole
// record for the slug in one write.
type Store interface {
	LoadState(ctx context.Context, slug string) (*status.ServiceState, error)
	SaveState(ctx context.Context, state *status.ServiceState) error
}

// IsNotFound reports whether a Store error means "no baseline yet".
type IsNotFound func(error) bool

// Dispatcher routes detected events to eligible users. It returns the number
// of emails sent.
type Dispatcher interface {
	Dispatch(ctx context.Context, slug string, events []status.Event) int
}

// Result is the outcome of one detection run.
type Result struct {
	Events     []status.Event
	EmailsSent int
}

// Engine computes domain events from snapshot/baseline pairs. Runs for the
// same slug are serialized so a racing run always diffs against the freshest
// baseline and short-circuits instead of re-emitting.
type Engine struct {
	store      Store
	dispatcher Dispatcher
	isNotFound IsNotFound
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a detection engine.
func New(store Store, dispatcher Dispatcher, isNotFound IsNotFound, logger *slog.Logger) *Engine {
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		isNotFound: isNotFound,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (e *Engine) slugLock(slug string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[slug]
	if !ok {
		l = &sync.Mutex{}
		e.locks[slug] = l
	}
	return l
}

// Process diffs snap against the persisted baseline for its slug, upserts the
// new baseline, and dispatches notifications for any events found. The
// trigger source is carried for observability only: identical inputs yield
// identical events regardless of source.
func (e *Engine) Process(ctx context.Context, snap *status.Snapshot, source status.Source) (*Result, error) {
	if snap == nil {
		return &Result{}, nil
	}
	if snap.Error != "" {
		// A failed fetch must never advance the baseline.
		e.logger.Debug("Skipping detection for errored snapshot", "slug", snap.Slug, "error", snap.Error)
		return &Result{}, nil
	}

	lock := e.slugLock(snap.Slug)
	lock.Lock()
	defer lock.Unlock()

	baseline, firstRun, err := e.baseline(ctx, snap.Slug)
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	events := diff(baseline, snap)

	newState := stateFrom(snap)
	if err := e.store.SaveState(ctx, newState); err != nil {
		return nil, fmt.Errorf("save baseline: %w", err)
	}

	if firstRun {
		// Backfill: record the baseline but never notify on pre-existing
		// conditions.
		e.logger.Info("Initial baseline recorded",
			"slug", snap.Slug,
			"status", snap.Status,
			"source", source)
		return &Result{}, nil
	}

	for _, ev := range events {
		metrics.ObserveEvent(string(ev.Kind()), string(source))
		e.logger.Info("Event detected",
			"slug", snap.Slug,
			"kind", ev.Kind(),
			"summary", ev.Summary(),
			"source", source)
	}

	result := &Result{Events: events}
	if len(events) > 0 && e.dispatcher != nil {
		result.EmailsSent = e.dispatcher.Dispatch(ctx, snap.Slug, events)
	}
	return result, nil
}

// baseline loads the persisted state, treating absence as a fresh start.
func (e *Engine) baseline(ctx context.Context, slug string) (*status.ServiceState, bool, error) {
	state, err := e.store.LoadState(ctx, slug)
	if err != nil {
		if e.isNotFound != nil && e.isNotFound(err) {
			return &status.ServiceState{Slug: slug, Status: status.Unknown}, true, nil
		}
		return nil, false, err
	}
	return state, false, nil
}

// diff computes the minimal event set between baseline and snapshot. Only the
// single most recent incident drives incident events; older concurrent
// incidents resolving or changing produce nothing. Known limitation, kept
// deliberately.
func diff(baseline *status.ServiceState, snap *status.Snapshot) []status.Event {
	var events []status.Event

	if snap.Status != baseline.Status {
		events = append(events, status.StatusChanged{Old: baseline.Status, New: snap.Status})
	}

	latest := snap.LatestIncident()
	if latest == nil {
		return events
	}

	switch {
	case latest.ID != baseline.IncidentID:
		events = append(events, status.IncidentOpened{Incident: latest})
	case latest.Status != baseline.IncidentStatus:
		if latest.Status.Terminal() && !baseline.IncidentStatus.Terminal() {
			events = append(events, status.IncidentResolved{
				IncidentID: latest.ID,
				Title:      latest.Title,
				Impact:     latest.Impact,
			})
		} else {
			events = append(events, status.IncidentStatusChanged{
				IncidentID: latest.ID,
				Title:      latest.Title,
				Impact:     latest.Impact,
				Old:        baseline.IncidentStatus,
				New:        latest.Status,
			})
		}
	}

	return events
}

func stateFrom(snap *status.Snapshot) *status.ServiceState {
	state := &status.ServiceState{
		Slug:      snap.Slug,
		Status:    snap.Status,
		UpdatedAt: time.Now(),
	}
	if latest := snap.LatestIncident(); latest != nil {
		state.IncidentID = latest.ID
		state.IncidentStatus = latest.Status
	}
	return state
}
