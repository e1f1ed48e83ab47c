package report

import (
	"time"

	"github.com/tsfopeneyes/center-management-sub001/internal/presence"
)

// VisitSession is one continuous presence span, reconstructed on demand
// from the event log and never persisted.
type VisitSession struct {
	SubjectID        string              `json:"subject_id"`
	Date             string              `json:"date"`
	Week             string              `json:"week"`
	StartEvent       presence.VisitEvent `json:"start_event"`
	EndEvent         presence.VisitEvent `json:"end_event"`
	VisitedLocations []string            `json:"visited_locations"`
	DurationMinutes  int                 `json:"duration_minutes"`
	// Anomalous marks a session that was implicitly closed because a new
	// check-in arrived while it was still open.
	Anomalous bool `json:"anomalous,omitempty"`
}

// WeekFunc buckets a date into a reporting week label. Injectable because
// the grouping is a business rule, not a correctness requirement.
type WeekFunc func(time.Time) string

// Filter narrows a reconstruction run. From is inclusive, To exclusive.
type Filter struct {
	SubjectID string
	From      time.Time
	To        time.Time
}
