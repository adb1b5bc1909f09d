package detect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

var errNotFound = errors.New("no baseline")

// fakeStore is an in-memory baseline store.
type fakeStore struct {
	mu     sync.Mutex
	states map[string]*status.ServiceState
	saves  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]*status.ServiceState)}
}

func (f *fakeStore) LoadState(_ context.Context, slug string) (*status.ServiceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[slug]
	if !ok {
		return nil, errNotFound
	}
	copied := *state
	return &copied, nil
}

func (f *fakeStore) SaveState(_ context.Context, state *status.ServiceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.states[state.Slug] = &copied
	f.saves++
	return nil
}

// fakeDispatcher records dispatched events.
type fakeDispatcher struct {
	mu     sync.Mutex
	calls  [][]status.Event
	emails int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ string, events []status.Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, events)
	return f.emails
}

func isNotFound(err error) bool { return errors.Is(err, errNotFound) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newEngine(store Store, d Dispatcher) *Engine {
	return New(store, d, isNotFound, testLogger())
}

func snapshot(slug string, st status.Status, incidents ...*status.Incident) *status.Snapshot {
	return &status.Snapshot{
		Slug:      slug,
		Status:    st,
		Incidents: incidents,
		FetchedAt: time.Now(),
	}
}

func TestFirstRunWritesBaselineWithoutEvents(t *testing.T) {
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	engine := newEngine(store, dispatcher)

	snap := snapshot("github", status.MajorOutage, &status.Incident{
		ID: "i1", Impact: status.ImpactCritical, Status: status.Investigating,
	})

	res, err := engine.Process(context.Background(), snap, status.SourceCron)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("first run emitted %d events, want 0", len(res.Events))
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("first run dispatched, want no dispatch")
	}

	state := store.states["github"]
	if state == nil {
		t.Fatal("baseline was not written")
	}
	if state.Status != status.MajorOutage || state.IncidentID != "i1" || state.IncidentStatus != status.Investigating {
		t.Errorf("baseline = %+v, want status major_outage, incident i1 investigating", state)
	}
}

func TestStatusAndIncidentScenario(t *testing.T) {
	store := newFakeStore()
	store.states["github"] = &status.ServiceState{Slug: "github", Status: status.Operational}
	dispatcher := &fakeDispatcher{emails: 3}
	engine := newEngine(store, dispatcher)

	snap := snapshot("github", status.MajorOutage, &status.Incident{
		ID: "i1", Title: "API down", Impact: status.ImpactCritical, Status: status.Investigating,
	})

	res, err := engine.Process(context.Background(), snap, status.SourceWebhook)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(res.Events))
	}

	sc, ok := res.Events[0].(status.StatusChanged)
	if !ok {
		t.Fatalf("event[0] = %T, want StatusChanged", res.Events[0])
	}
	if sc.Old != status.Operational || sc.New != status.MajorOutage {
		t.Errorf("StatusChanged = %+v, want operational -> major_outage", sc)
	}

	io, ok := res.Events[1].(status.IncidentOpened)
	if !ok {
		t.Fatalf("event[1] = %T, want IncidentOpened", res.Events[1])
	}
	if io.Incident.ID != "i1" {
		t.Errorf("IncidentOpened id = %q, want i1", io.Incident.ID)
	}

	if res.EmailsSent != 3 {
		t.Errorf("EmailsSent = %d, want dispatcher's count 3", res.EmailsSent)
	}

	state := store.states["github"]
	if state.Status != status.MajorOutage || state.IncidentID != "i1" || state.IncidentStatus != status.Investigating {
		t.Errorf("new baseline = %+v", state)
	}
}

func TestIncidentResolvedScenario(t *testing.T) {
	store := newFakeStore()
	store.states["github"] = &status.ServiceState{
		Slug:           "github",
		Status:         status.PartialOutage,
		IncidentID:     "i1",
		IncidentStatus: status.Investigating,
	}
	engine := newEngine(store, &fakeDispatcher{})

	snap := snapshot("github", status.PartialOutage, &status.Incident{
		ID: "i1", Impact: status.ImpactMajor, Status: status.Resolved,
	})

	res, err := engine.Process(context.Background(), snap, status.SourceCron)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	resolved, ok := res.Events[0].(status.IncidentResolved)
	if !ok {
		t.Fatalf("event = %T, want IncidentResolved", res.Events[0])
	}
	if resolved.IncidentID != "i1" {
		t.Errorf("IncidentResolved id = %q, want i1", resolved.IncidentID)
	}
	// Resolution keeps the incident's original severity.
	if resolved.Severity() != status.PartialOutage {
		t.Errorf("Severity() = %v, want partial_outage", resolved.Severity())
	}
}

func TestIncidentStatusChanged(t *testing.T) {
	store := newFakeStore()
	store.states["svc"] = &status.ServiceState{
		Slug:           "svc",
		Status:         status.Degraded,
		IncidentID:     "i1",
		IncidentStatus: status.Investigating,
	}
	engine := newEngine(store, &fakeDispatcher{})

	snap := snapshot("svc", status.Degraded, &status.Incident{
		ID: "i1", Impact: status.ImpactMinor, Status: status.Monitoring,
	})

	res, err := engine.Process(context.Background(), snap, status.SourceCron)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	changed, ok := res.Events[0].(status.IncidentStatusChanged)
	if !ok {
		t.Fatalf("event = %T, want IncidentStatusChanged", res.Events[0])
	}
	if changed.Old != status.Investigating || changed.New != status.Monitoring {
		t.Errorf("transition = %s -> %s, want investigating -> monitoring", changed.Old, changed.New)
	}
}

func TestIdempotence(t *testing.T) {
	store := newFakeStore()
	store.states["svc"] = &status.ServiceState{Slug: "svc", Status: status.Operational}
	engine := newEngine(store, &fakeDispatcher{})

	snap := snapshot("svc", status.Degraded)

	first, err := engine.Process(context.Background(), snap, status.SourceCron)
	if err != nil {
		t.Fatalf("first Process() error = %v", err)
	}
	if len(first.Events) != 1 {
		t.Fatalf("first run got %d events, want 1", len(first.Events))
	}

	second, err := engine.Process(context.Background(), snap, status.SourceCron)
	if err != nil {
		t.Fatalf("second Process() error = %v", err)
	}
	if len(second.Events) != 0 {
		t.Errorf("second run got %d events, want 0", len(second.Events))
	}
}

// TestDeterminism verifies identical inputs produce identical events
// regardless of the trigger source.
func TestDeterminism(t *testing.T) {
	baseline := &status.ServiceState{Slug: "svc", Status: status.Operational}
	snap := snapshot("svc", status.MajorOutage, &status.Incident{
		ID: "i9", Impact: status.ImpactCritical, Status: status.Identified,
	})

	run := func(source status.Source) []status.Event {
		store := newFakeStore()
		copied := *baseline
		store.states["svc"] = &copied
		engine := newEngine(store, &fakeDispatcher{})
		res, err := engine.Process(context.Background(), snap, source)
		if err != nil {
			t.Fatalf("Process(%s) error = %v", source, err)
		}
		return res.Events
	}

	cronEvents := run(status.SourceCron)
	webhookEvents := run(status.SourceWebhook)

	if len(cronEvents) != len(webhookEvents) {
		t.Fatalf("cron got %d events, webhook got %d", len(cronEvents), len(webhookEvents))
	}
	for i := range cronEvents {
		if cronEvents[i].Kind() != webhookEvents[i].Kind() ||
			cronEvents[i].Summary() != webhookEvents[i].Summary() {
			t.Errorf("event %d differs: cron %q, webhook %q",
				i, cronEvents[i].Summary(), webhookEvents[i].Summary())
		}
	}
}

func TestErroredSnapshotSkipsDetection(t *testing.T) {
	store := newFakeStore()
	store.states["svc"] = &status.ServiceState{Slug: "svc", Status: status.Operational}
	engine := newEngine(store, &fakeDispatcher{})

	snap := &status.Snapshot{Slug: "svc", Status: status.Unknown, Error: "connection refused"}

	res, err := engine.Process(context.Background(), snap, status.SourceCron)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("errored snapshot emitted events")
	}
	if store.states["svc"].Status != status.Operational {
		t.Error("errored snapshot advanced the baseline")
	}
}

// TestConcurrentRunsEmitOnce runs many detections for the same transition in
// parallel and verifies exactly one emits the event set.
func TestConcurrentRunsEmitOnce(t *testing.T) {
	store := newFakeStore()
	store.states["svc"] = &status.ServiceState{Slug: "svc", Status: status.Operational}
	dispatcher := &fakeDispatcher{}
	engine := newEngine(store, dispatcher)

	snap := snapshot("svc", status.MajorOutage)

	const runs = 16
	var wg sync.WaitGroup
	results := make([]int, runs)
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.Process(context.Background(), snap, status.SourceWebhook)
			if err != nil {
				t.Errorf("Process() error = %v", err)
				return
			}
			results[i] = len(res.Events)
		}()
	}
	wg.Wait()

	var emitted int
	for _, n := range results {
		emitted += n
	}
	if emitted != 1 {
		t.Errorf("concurrent runs emitted %d events total, want exactly 1", emitted)
	}
}
