package report

import (
	"github.com/tsfopeneyes/center-management-sub001/internal/presence"
	"github.com/tsfopeneyes/center-management-sub001/internal/shared/calweek"
)

type openSession struct {
	start     presence.VisitEvent
	locations []string
	seen      map[string]struct{}
	lastLoc   string
}

func (o *openSession) visit(locationName, locationID string) {
	o.lastLoc = locationID
	if _, ok := o.seen[locationName]; ok {
		return
	}
	o.seen[locationName] = struct{}{}
	o.locations = append(o.locations, locationName)
}

// Reconstruct folds a chronologically sorted event range into visit
// sessions. Guest events never participate. Orphan MOVE/CHECK_OUT events
// are dropped and counted, never an error; the count is exposed for
// data-quality monitoring. A second CHECK_IN on an open session implicitly
// closes it at the new check-in's timestamp and marks it anomalous.
//
// Durations prefer the closing event's recorded minutes (stamped by
// reconciliation) and fall back to the start/end timestamp difference.
func Reconstruct(events []presence.VisitEvent, nameOf func(string) string, weekOf WeekFunc) ([]VisitSession, int) {
	if nameOf == nil {
		nameOf = func(id string) string { return id }
	}
	if weekOf == nil {
		weekOf = calweek.Identifier
	}

	open := map[string]*openSession{}
	var sessions []VisitSession
	dropped := 0

	for _, ev := range events {
		if ev.Kind == presence.KindGuestEntry || ev.SubjectID == nil {
			continue
		}
		subjectID := *ev.SubjectID
		cur := open[subjectID]

		switch ev.Kind {
		case presence.KindCheckIn:
			if cur != nil {
				end := presence.VisitEvent{
					SubjectID:  ev.SubjectID,
					LocationID: cur.lastLoc,
					Kind:       presence.KindCheckOut,
					OccurredAt: ev.OccurredAt,
					Note:       "implicitly closed by next check-in",
				}
				sessions = append(sessions, emit(subjectID, cur, end, true, weekOf))
			}
			cur = &openSession{start: ev, seen: map[string]struct{}{}}
			cur.visit(nameOf(ev.LocationID), ev.LocationID)
			open[subjectID] = cur

		case presence.KindMove:
			if cur == nil {
				dropped++
				continue
			}
			cur.visit(nameOf(ev.LocationID), ev.LocationID)

		case presence.KindCheckOut:
			if cur == nil {
				dropped++
				continue
			}
			sessions = append(sessions, emit(subjectID, cur, ev, false, weekOf))
			delete(open, subjectID)
		}
	}
	return sessions, dropped
}

func emit(subjectID string, cur *openSession, end presence.VisitEvent, anomalous bool, weekOf WeekFunc) VisitSession {
	minutes := 0
	if end.RecordedDurationMinutes != nil {
		minutes = *end.RecordedDurationMinutes
	} else if d := int(end.OccurredAt.Sub(cur.start.OccurredAt).Minutes()); d > 0 {
		minutes = d
	}
	return VisitSession{
		SubjectID:        subjectID,
		Date:             cur.start.OccurredAt.Format("2006-01-02"),
		Week:             weekOf(cur.start.OccurredAt),
		StartEvent:       cur.start,
		EndEvent:         end,
		VisitedLocations: cur.locations,
		DurationMinutes:  minutes,
		Anomalous:        anomalous,
	}
}
