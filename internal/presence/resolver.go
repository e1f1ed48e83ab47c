package presence

import "time"

// Resolve folds a subject's events in chronological order and returns the
// presence state as of the given instant. Events after asOf and guest
// counter events are ignored. A MOVE or CHECK_OUT with no open check-in is
// treated as leaving the subject OUT, never as an error.
func Resolve(events []VisitEvent, asOf time.Time) Presence {
	var state Presence
	for _, ev := range events {
		if ev.OccurredAt.After(asOf) {
			continue
		}
		switch ev.Kind {
		case KindCheckIn:
			state = Presence{In: true, LocationID: ev.LocationID, Since: ev.OccurredAt}
		case KindMove:
			if state.In {
				state.LocationID = ev.LocationID
			}
		case KindCheckOut:
			state = Presence{}
		}
	}
	return state
}
