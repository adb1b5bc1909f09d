package status

import "time"

// ServiceConfig describes one monitored service. The catalog is loaded at
// startup and never mutated at runtime.
type ServiceConfig struct {
	Slug     string `yaml:"slug" json:"slug"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
	Provider string `yaml:"provider" json:"provider"` // "statuspage" or "html"
	BaseURL  string `yaml:"baseURL" json:"base_url"`
	// StatusURL overrides the fetch endpoint when it differs from
	// BaseURL + the provider's default path.
	StatusURL string `yaml:"statusURL,omitempty" json:"status_url,omitempty"`
}

// Incident is one normalized provider incident. Identity is the
// provider-assigned ID: two incidents across snapshots are the same incident
// iff their IDs match.
type Incident struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Impact    Impact         `json:"impact"`
	Status    IncidentStatus `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot is one normalized read of a service, immutable once constructed.
// Incidents are ordered most recent first. Error is set when the fetch for
// this slug failed; such snapshots carry Status Unknown and are never used
// to advance the persisted baseline.
type Snapshot struct {
	Slug      string      `json:"slug"`
	Status    Status      `json:"status"`
	Incidents []*Incident `json:"incidents,omitempty"`
	Error     string      `json:"error,omitempty"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// LatestIncident returns the most recent incident, or nil.
func (s *Snapshot) LatestIncident() *Incident {
	if len(s.Incidents) == 0 {
		return nil
	}
	return s.Incidents[0]
}

// ServiceState is the persisted diff baseline, one record per slug. It always
// reflects the outcome of the most recently completed detection run.
type ServiceState struct {
	Slug           string         `json:"slug"`
	Status         Status         `json:"status"`
	IncidentID     string         `json:"incident_id,omitempty"`
	IncidentStatus IncidentStatus `json:"incident_status,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Preference holds a user's notification settings.
type Preference struct {
	Email        string `json:"email"`          // owning user
	EmailAddress string `json:"email_address"`  // delivery override, defaults to Email
	PushEnabled  bool   `json:"push_enabled"`   // consumed client-side
	EmailEnabled bool   `json:"email_enabled"`
	Threshold    string `json:"threshold"` // "all" or a canonical status name
}

// Recipient returns the address notifications should be delivered to.
func (p *Preference) Recipient() string {
	if p.EmailAddress != "" {
		return p.EmailAddress
	}
	return p.Email
}

// Project groups services a user tracks. Project membership defines the
// notification fan-out set for its slugs.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerEmail string    `json:"owner_email"`
	Slugs      []string  `json:"slugs"`
	ShareCode  string    `json:"share_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Account records a user's billing plan, maintained by the billing webhook.
// It shares the store with the status core but is otherwise unrelated to it.
type Account struct {
	Email     string    `json:"email"`
	Plan      string    `json:"plan"`   // "free" or "pro"
	Status    string    `json:"status"` // internal billing status
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether the project tracks slug.
func (p *Project) Contains(slug string) bool {
	for _, s := range p.Slugs {
		if s == slug {
			return true
		}
	}
	return false
}
