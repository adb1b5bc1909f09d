// Package provider decodes raw status-page payloads and normalizes their
// vocabularies into the canonical status model. All mapping functions are
// total: unknown inputs map to a safe default, never an error.
package provider

import (
	"strings"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// Provider kinds the fetch layer dispatches on.
const (
	KindStatuspage = "statuspage"
	KindHTML       = "html"
)

// KnownKind reports whether kind names a supported provider branch.
func KnownKind(kind string) bool {
	return kind == KindStatuspage || kind == KindHTML
}

// NormalizeIndicator maps a provider status indicator to a canonical status.
func NormalizeIndicator(indicator string) status.Status {
	switch strings.ToLower(strings.TrimSpace(indicator)) {
	case "none":
		return status.Operational
	case "minor":
		return status.Degraded
	case "major":
		return status.PartialOutage
	case "critical":
		return status.MajorOutage
	case "maintenance":
		return status.Maintenance
	default:
		return status.Unknown
	}
}

// NormalizeImpact maps a raw incident impact to a canonical impact.
func NormalizeImpact(impact string) status.Impact {
	switch strings.ToLower(strings.TrimSpace(impact)) {
	case "minor":
		return status.ImpactMinor
	case "major":
		return status.ImpactMajor
	case "critical":
		return status.ImpactCritical
	case "none":
		return status.ImpactNone
	default:
		return status.ImpactNone
	}
}

// NormalizeIncidentStatus maps a raw incident status to a canonical
// lifecycle state.
func NormalizeIncidentStatus(s string) status.IncidentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "identified":
		return status.Identified
	case "monitoring":
		return status.Monitoring
	case "resolved":
		return status.Resolved
	case "postmortem":
		return status.Postmortem
	case "investigating":
		return status.Investigating
	default:
		return status.Investigating
	}
}
