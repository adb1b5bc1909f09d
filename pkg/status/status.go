// Package status contains the canonical status vocabulary and core domain
// types shared by every component of the StatusHub service. All provider
// payloads are normalized into these types before anything else looks at them.
package status

import "strings"

// Status is the canonical six-value service status.
type Status string

const (
	Operational   Status = "operational"
	Degraded      Status = "degraded"
	PartialOutage Status = "partial_outage"
	MajorOutage   Status = "major_outage"
	Maintenance   Status = "maintenance"
	Unknown       Status = "unknown"
)

// severityRank orders statuses from most severe (0) to least.
// Threshold comparisons and display ordering both use this ranking.
var severityRank = map[Status]int{
	MajorOutage:   0,
	PartialOutage: 1,
	Degraded:      2,
	Maintenance:   3,
	Operational:   4,
	Unknown:       5,
}

// Rank returns the severity rank of s: 0 is the most severe. Unrecognized
// values rank alongside Unknown.
func (s Status) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[Unknown]
}

// AtLeast reports whether s is at least as severe as threshold.
func (s Status) AtLeast(threshold Status) bool {
	return s.Rank() <= threshold.Rank()
}

// Label returns a human-readable form for emails and notifications.
func (s Status) Label() string {
	switch s {
	case Operational:
		return "Operational"
	case Degraded:
		return "Degraded Performance"
	case PartialOutage:
		return "Partial Outage"
	case MajorOutage:
		return "Major Outage"
	case Maintenance:
		return "Under Maintenance"
	default:
		return "Unknown"
	}
}

// ParseStatus maps a canonical status string back to a Status. It is total:
// anything unrecognized becomes Unknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case Operational:
		return Operational
	case Degraded:
		return Degraded
	case PartialOutage:
		return PartialOutage
	case MajorOutage:
		return MajorOutage
	case Maintenance:
		return Maintenance
	default:
		return Unknown
	}
}

// Impact is the canonical incident impact.
type Impact string

const (
	ImpactNone     Impact = "none"
	ImpactMinor    Impact = "minor"
	ImpactMajor    Impact = "major"
	ImpactCritical Impact = "critical"
)

// Status maps an impact onto the status severity scale so that incident
// events can be compared against per-user severity thresholds.
func (i Impact) Status() Status {
	switch i {
	case ImpactCritical:
		return MajorOutage
	case ImpactMajor:
		return PartialOutage
	case ImpactMinor:
		return Degraded
	default:
		return Operational
	}
}

// IncidentStatus is the canonical incident lifecycle state.
type IncidentStatus string

const (
	Investigating IncidentStatus = "investigating"
	Identified    IncidentStatus = "identified"
	Monitoring    IncidentStatus = "monitoring"
	Resolved      IncidentStatus = "resolved"
	Postmortem    IncidentStatus = "postmortem"
)

// Terminal reports whether the incident lifecycle has ended.
func (s IncidentStatus) Terminal() bool {
	return s == Resolved || s == Postmortem
}

// Source identifies which trigger invoked the fetch/detect pipeline. It is
// carried for observability only; detection results never depend on it.
type Source string

const (
	SourceCron        Source = "cron"
	SourceWebhook     Source = "webhook"
	SourceInteractive Source = "interactive"
)

// ThresholdAll disables the severity floor in a notification preference.
const ThresholdAll = "all"

// MeetsThreshold reports whether an event at severity sev passes the given
// preference threshold. An empty or "all" threshold passes everything.
func MeetsThreshold(sev Status, threshold string) bool {
	if threshold == "" || threshold == ThresholdAll {
		return true
	}
	return sev.AtLeast(ParseStatus(threshold))
}
