package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// summaryPayload mirrors the Statuspage v2 summary.json document, limited to
// the fields the normalizer consumes.
type summaryPayload struct {
	Status struct {
		Indicator   string `json:"indicator"`
		Description string `json:"description"`
	} `json:"status"`
	Incidents []struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Impact    string    `json:"impact"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	} `json:"incidents"`
}

// SummaryPath is the conventional Statuspage v2 summary endpoint, relative to
// a page's base URL.
const SummaryPath = "/api/v2/summary.json"

// ParseStatuspage decodes a Statuspage summary document and normalizes it
// into a snapshot for slug. Incidents come back most recent first; the sort
// guards against providers that return them in creation order.
func ParseStatuspage(r io.Reader, slug string, fetchedAt time.Time) (*status.Snapshot, error) {
	var payload summaryPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode summary payload: %w", err)
	}

	incidents := make([]*status.Incident, 0, len(payload.Incidents))
	for _, in := range payload.Incidents {
		if in.ID == "" {
			continue
		}
		incidents = append(incidents, &status.Incident{
			ID:        in.ID,
			Title:     in.Name,
			Impact:    NormalizeImpact(in.Impact),
			Status:    NormalizeIncidentStatus(in.Status),
			StartedAt: in.CreatedAt,
			UpdatedAt: in.UpdatedAt,
		})
	}
	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].UpdatedAt.After(incidents[j].UpdatedAt)
	})

	return &status.Snapshot{
		Slug:      slug,
		Status:    NormalizeIndicator(payload.Status.Indicator),
		Incidents: incidents,
		FetchedAt: fetchedAt,
	}, nil
}
