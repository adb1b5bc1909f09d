package status

import "testing"

func TestRankOrdersBySeverity(t *testing.T) {
	ordered := []Status{MajorOutage, PartialOutage, Degraded, Maintenance, Operational, Unknown}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("%s (rank %d) should outrank %s (rank %d)",
				ordered[i-1], ordered[i-1].Rank(), ordered[i], ordered[i].Rank())
		}
	}
	if Status("garbage").Rank() != Unknown.Rank() {
		t.Errorf("unrecognized status should rank as unknown")
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		s, threshold Status
		want         bool
	}{
		{MajorOutage, Degraded, true},
		{Degraded, Degraded, true},
		{Maintenance, Degraded, false},
		{Operational, MajorOutage, false},
		{MajorOutage, MajorOutage, true},
	}
	for _, tt := range tests {
		if got := tt.s.AtLeast(tt.threshold); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.s, tt.threshold, got, tt.want)
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	tests := []struct {
		sev       Status
		threshold string
		want      bool
	}{
		{Maintenance, ThresholdAll, true},
		{Maintenance, "", true},
		{Maintenance, "degraded", false},
		{PartialOutage, "degraded", true},
		{Degraded, "degraded", true},
		{PartialOutage, "major_outage", false},
		// An unparseable threshold reads as unknown, the loosest floor.
		{Maintenance, "bogus", true},
	}
	for _, tt := range tests {
		if got := MeetsThreshold(tt.sev, tt.threshold); got != tt.want {
			t.Errorf("MeetsThreshold(%s, %q) = %v, want %v", tt.sev, tt.threshold, got, tt.want)
		}
	}
}

func TestParseStatusTotal(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"operational", Operational},
		{" MAJOR_OUTAGE ", MajorOutage},
		{"Maintenance", Maintenance},
		{"nonsense", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestImpactStatus(t *testing.T) {
	tests := []struct {
		impact Impact
		want   Status
	}{
		{ImpactCritical, MajorOutage},
		{ImpactMajor, PartialOutage},
		{ImpactMinor, Degraded},
		{ImpactNone, Operational},
		{Impact("weird"), Operational},
	}
	for _, tt := range tests {
		if got := tt.impact.Status(); got != tt.want {
			t.Errorf("%s.Status() = %v, want %v", tt.impact, got, tt.want)
		}
	}
}

func TestIncidentStatusTerminal(t *testing.T) {
	for _, st := range []IncidentStatus{Investigating, Identified, Monitoring} {
		if st.Terminal() {
			t.Errorf("%s.Terminal() = true", st)
		}
	}
	for _, st := range []IncidentStatus{Resolved, Postmortem} {
		if !st.Terminal() {
			t.Errorf("%s.Terminal() = false", st)
		}
	}
}

// Resolution and update events keep the incident's original severity so the
// audience that saw the opening notice also sees the close.
func TestEventSeverity(t *testing.T) {
	opened := IncidentOpened{Incident: &Incident{ID: "i1", Impact: ImpactCritical}}
	if opened.Severity() != MajorOutage {
		t.Errorf("IncidentOpened severity = %v", opened.Severity())
	}

	resolved := IncidentResolved{IncidentID: "i1", Impact: ImpactCritical}
	if resolved.Severity() != MajorOutage {
		t.Errorf("IncidentResolved severity = %v", resolved.Severity())
	}

	changed := StatusChanged{Old: MajorOutage, New: Operational}
	if changed.Severity() != Operational {
		t.Errorf("StatusChanged severity = %v, want the new status", changed.Severity())
	}
}

func TestSnapshotLatestIncident(t *testing.T) {
	empty := &Snapshot{Slug: "x"}
	if empty.LatestIncident() != nil {
		t.Error("empty snapshot has a latest incident")
	}
	snap := &Snapshot{Slug: "x", Incidents: []*Incident{{ID: "newest"}, {ID: "older"}}}
	if got := snap.LatestIncident(); got.ID != "newest" {
		t.Errorf("LatestIncident() = %s, want newest", got.ID)
	}
}
