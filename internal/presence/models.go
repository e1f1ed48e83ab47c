package presence

import "time"

type EventKind string

const (
	KindCheckIn    EventKind = "CHECK_IN"
	KindMove       EventKind = "MOVE"
	KindCheckOut   EventKind = "CHECK_OUT"
	KindGuestEntry EventKind = "GUEST_ENTRY"
)

// VisitEvent is one row of the append-only presence log. SubjectID is nil
// for anonymous guest counter events. RecordedDurationMinutes is populated
// only on reconciliation-forced checkouts; kiosk events leave it nil.
type VisitEvent struct {
	ID                      string    `json:"id"`
	SubjectID               *string   `json:"subject_id,omitempty"`
	LocationID              string    `json:"location_id"`
	Kind                    EventKind `json:"kind"`
	OccurredAt              time.Time `json:"occurred_at"`
	RecordedDurationMinutes *int      `json:"recorded_duration_minutes,omitempty"`
	Note                    string    `json:"note,omitempty"`
}

// Presence is the derived state of one subject. The zero value means OUT.
// Since is the opening check-in time when the state was derived from a
// full event fold; transition results that only saw the last event leave
// it zero.
type Presence struct {
	In         bool      `json:"in"`
	LocationID string    `json:"location_id,omitempty"`
	Since      time.Time `json:"since,omitzero"`
}

// IdentifyResult is what the kiosk UI renders after an accepted
// identification. The enrichment fields are informational and populated
// only on CHECK_IN, best effort.
type IdentifyResult struct {
	Kind            EventKind  `json:"kind"`
	Event           VisitEvent `json:"event"`
	Presence        Presence   `json:"presence"`
	FirstVisitOfDay bool       `json:"first_visit_of_day,omitempty"`
	StreakDays      int        `json:"streak_days,omitempty"`
	ProgramsMarked  int        `json:"programs_marked,omitempty"`
	MilestoneVisits int        `json:"milestone_visits,omitempty"`
}

// LocationOccupancy lists who is currently inside one room, plus the
// anonymous guest counter for the day.
type LocationOccupancy struct {
	LocationID string   `json:"location_id"`
	Occupants  []string `json:"occupants"`
	GuestCount int      `json:"guest_count"`
}
