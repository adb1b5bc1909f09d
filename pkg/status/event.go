package status

import "fmt"

// EventKind tags the detected event variants.
type EventKind string

const (
	KindStatusChanged         EventKind = "status_changed"
	KindIncidentOpened        EventKind = "incident_opened"
	KindIncidentStatusChanged EventKind = "incident_status_changed"
	KindIncidentResolved      EventKind = "incident_resolved"
)

// Event is one detected state transition. Events are ephemeral: produced by a
// single detection run and consumed immediately by the dispatcher.
type Event interface {
	Kind() EventKind
	// Severity places the event on the status scale for threshold filtering.
	Severity() Status
	// Summary is a short human-readable description used in logs and
	// webhook responses.
	Summary() string
}

// StatusChanged records a canonical status transition.
type StatusChanged struct {
	Old Status `json:"old"`
	New Status `json:"new"`
}

func (StatusChanged) Kind() EventKind    { return KindStatusChanged }
func (e StatusChanged) Severity() Status { return e.New }
func (e StatusChanged) Summary() string {
	return fmt.Sprintf("status %s -> %s", e.Old, e.New)
}

// IncidentOpened records a newly observed incident.
type IncidentOpened struct {
	Incident *Incident `json:"incident"`
}

func (IncidentOpened) Kind() EventKind    { return KindIncidentOpened }
func (e IncidentOpened) Severity() Status { return e.Incident.Impact.Status() }
func (e IncidentOpened) Summary() string {
	return fmt.Sprintf("incident opened: %s (%s)", e.Incident.ID, e.Incident.Impact)
}

// IncidentStatusChanged records a lifecycle transition of the latest incident.
type IncidentStatusChanged struct {
	IncidentID string         `json:"incident_id"`
	Title      string         `json:"title"`
	Impact     Impact         `json:"impact"`
	Old        IncidentStatus `json:"old"`
	New        IncidentStatus `json:"new"`
}

func (IncidentStatusChanged) Kind() EventKind { return KindIncidentStatusChanged }

// Severity reports the incident's original impact, not re-evaluated per update.
func (e IncidentStatusChanged) Severity() Status { return e.Impact.Status() }
func (e IncidentStatusChanged) Summary() string {
	return fmt.Sprintf("incident %s: %s -> %s", e.IncidentID, e.Old, e.New)
}

// IncidentResolved records the latest incident reaching a terminal state.
type IncidentResolved struct {
	IncidentID string `json:"incident_id"`
	Title      string `json:"title"`
	Impact     Impact `json:"impact"`
}

func (IncidentResolved) Kind() EventKind { return KindIncidentResolved }

// Severity reports the incident's original impact so that resolution notices
// reach the same audience the opening notice did.
func (e IncidentResolved) Severity() Status { return e.Impact.Status() }
func (e IncidentResolved) Summary() string {
	return fmt.Sprintf("incident %s resolved", e.IncidentID)
}
