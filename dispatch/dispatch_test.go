package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

var errNoRecord = errors.New("no record")

type fakeStore struct {
	projects map[string][]*status.Project
	prefs    map[string]*status.Preference
}

func (f *fakeStore) ProjectsForSlug(_ context.Context, slug string) ([]*status.Project, error) {
	return f.projects[slug], nil
}

func (f *fakeStore) LoadPreference(_ context.Context, email string) (*status.Preference, error) {
	pref, ok := f.prefs[email]
	if !ok {
		return nil, errNoRecord
	}
	return pref, nil
}

func (f *fakeStore) TokenFromEmail(email string) string { return "tok-" + email }

type sentMail struct {
	to    string
	token string
	kind  status.EventKind
}

type fakeSender struct {
	sent    []sentMail
	failFor map[string]bool
}

func (f *fakeSender) SendEvent(_ context.Context, to, token string, _ *status.ServiceConfig, ev status.Event) error {
	if f.failFor[to] {
		return fmt.Errorf("smtp rejected %s", to)
	}
	f.sent = append(f.sent, sentMail{to: to, token: token, kind: ev.Kind()})
	return nil
}

type fakeCatalog struct{ slugs map[string]*status.ServiceConfig }

func (f *fakeCatalog) Config(slug string) (*status.ServiceConfig, bool) {
	svc, ok := f.slugs[slug]
	return svc, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func isNoRecord(err error) bool { return errors.Is(err, errNoRecord) }

func githubCatalog() *fakeCatalog {
	return &fakeCatalog{slugs: map[string]*status.ServiceConfig{
		"github": {Slug: "github", Name: "GitHub"},
	}}
}

func pref(email, threshold string) *status.Preference {
	return &status.Preference{Email: email, EmailEnabled: true, Threshold: threshold}
}

func TestDispatchFansOutToSubscribers(t *testing.T) {
	store := &fakeStore{
		projects: map[string][]*status.Project{
			"github": {
				{ID: "p1", OwnerEmail: "a@example.com", Slugs: []string{"github"}},
				{ID: "p2", OwnerEmail: "b@example.com", Slugs: []string{"github"}},
				{ID: "p3", OwnerEmail: "a@example.com", Slugs: []string{"github"}},
			},
		},
		prefs: map[string]*status.Preference{
			"a@example.com": pref("a@example.com", status.ThresholdAll),
			"b@example.com": pref("b@example.com", status.ThresholdAll),
		},
	}
	sender := &fakeSender{}
	d := New(store, sender, githubCatalog(), isNoRecord, discardLogger())

	sent := d.Dispatch(context.Background(), "github", []status.Event{
		status.StatusChanged{Old: status.Operational, New: status.MajorOutage},
	})

	if sent != 2 {
		t.Errorf("Dispatch() = %d, want 2 (one per distinct owner)", sent)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sender saw %d sends, want 2", len(sender.sent))
	}
	// Recipients are ordered, so delivery is deterministic.
	if sender.sent[0].to != "a@example.com" || sender.sent[1].to != "b@example.com" {
		t.Errorf("recipients = %v", sender.sent)
	}
	if sender.sent[0].token != "tok-a@example.com" {
		t.Errorf("token = %q", sender.sent[0].token)
	}
}

func TestDispatchSeverityThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		severity  status.Status
		wantSent  int
	}{
		{"all passes everything", status.ThresholdAll, status.Maintenance, 1},
		{"degraded blocks maintenance", "degraded", status.Maintenance, 0},
		{"degraded passes partial outage", "degraded", status.PartialOutage, 1},
		{"degraded passes equal severity", "degraded", status.Degraded, 1},
		{"major outage blocks partial outage", "major_outage", status.PartialOutage, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				projects: map[string][]*status.Project{
					"github": {{ID: "p1", OwnerEmail: "a@example.com"}},
				},
				prefs: map[string]*status.Preference{
					"a@example.com": pref("a@example.com", tt.threshold),
				},
			}
			sender := &fakeSender{}
			d := New(store, sender, githubCatalog(), isNoRecord, discardLogger())

			sent := d.Dispatch(context.Background(), "github", []status.Event{
				status.StatusChanged{Old: status.Operational, New: tt.severity},
			})
			if sent != tt.wantSent {
				t.Errorf("Dispatch() = %d, want %d", sent, tt.wantSent)
			}
		})
	}
}

func TestDispatchSkipsEmailDisabled(t *testing.T) {
	store := &fakeStore{
		projects: map[string][]*status.Project{
			"github": {{ID: "p1", OwnerEmail: "quiet@example.com"}},
		},
		prefs: map[string]*status.Preference{
			"quiet@example.com": {Email: "quiet@example.com", EmailEnabled: false, Threshold: status.ThresholdAll},
		},
	}
	sender := &fakeSender{}
	d := New(store, sender, githubCatalog(), isNoRecord, discardLogger())

	sent := d.Dispatch(context.Background(), "github", []status.Event{
		status.StatusChanged{Old: status.Operational, New: status.MajorOutage},
	})
	if sent != 0 || len(sender.sent) != 0 {
		t.Errorf("disabled user received mail: sent=%d", sent)
	}
}

// Users with no stored preference default to email off.
func TestDispatchDefaultPreferenceIsOptOut(t *testing.T) {
	store := &fakeStore{
		projects: map[string][]*status.Project{
			"github": {{ID: "p1", OwnerEmail: "new@example.com"}},
		},
		prefs: map[string]*status.Preference{},
	}
	sender := &fakeSender{}
	d := New(store, sender, githubCatalog(), isNoRecord, discardLogger())

	sent := d.Dispatch(context.Background(), "github", []status.Event{
		status.StatusChanged{Old: status.Operational, New: status.MajorOutage},
	})
	if sent != 0 {
		t.Errorf("user without stored preference got %d emails, want 0", sent)
	}
}

func TestDispatchDeliveryFailureIsolation(t *testing.T) {
	store := &fakeStore{
		projects: map[string][]*status.Project{
			"github": {
				{ID: "p1", OwnerEmail: "broken@example.com"},
				{ID: "p2", OwnerEmail: "fine@example.com"},
			},
		},
		prefs: map[string]*status.Preference{
			"broken@example.com": pref("broken@example.com", status.ThresholdAll),
			"fine@example.com":   pref("fine@example.com", status.ThresholdAll),
		},
	}
	sender := &fakeSender{failFor: map[string]bool{"broken@example.com": true}}
	d := New(store, sender, githubCatalog(), isNoRecord, discardLogger())

	sent := d.Dispatch(context.Background(), "github", []status.Event{
		status.StatusChanged{Old: status.Operational, New: status.MajorOutage},
	})
	if sent != 1 {
		t.Errorf("Dispatch() = %d, want 1 despite one failed recipient", sent)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "fine@example.com" {
		t.Errorf("delivery = %v, want only fine@example.com", sender.sent)
	}
}

func TestDispatchUnknownService(t *testing.T) {
	d := New(&fakeStore{}, &fakeSender{}, githubCatalog(), isNoRecord, discardLogger())
	sent := d.Dispatch(context.Background(), "nope", []status.Event{
		status.StatusChanged{Old: status.Operational, New: status.MajorOutage},
	})
	if sent != 0 {
		t.Errorf("Dispatch() = %d for unknown slug, want 0", sent)
	}
}

func TestDispatchNoEvents(t *testing.T) {
	sender := &fakeSender{}
	d := New(&fakeStore{}, sender, githubCatalog(), isNoRecord, discardLogger())
	if sent := d.Dispatch(context.Background(), "github", nil); sent != 0 {
		t.Errorf("Dispatch() = %d for empty batch, want 0", sent)
	}
}
