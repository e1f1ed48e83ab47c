package presence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// lastEvent loads the subject's most recent non-guest event, at any
// location. The second return value reports whether one exists.
func (s *Service) lastEvent(ctx context.Context, subjectID string) (VisitEvent, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, subject_id, location_id, kind, occurred_at, duration_min, COALESCE(note,'')
		FROM visit_events
		WHERE subject_id = $1 AND kind <> 'GUEST_ENTRY'
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`, subjectID)
	var ev VisitEvent
	if err := row.Scan(&ev.ID, &ev.SubjectID, &ev.LocationID, &ev.Kind, &ev.OccurredAt, &ev.RecordedDurationMinutes, &ev.Note); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VisitEvent{}, false, nil
		}
		return VisitEvent{}, false, err
	}
	return ev, true, nil
}

// appendIf inserts the event only while prevID is still the subject's most
// recent event id (nil means no prior event). Returns false when another
// terminal appended first; the caller re-reads and re-decides.
func (s *Service) appendIf(ctx context.Context, ev VisitEvent, prevID *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO visit_events (id, subject_id, location_id, kind, occurred_at, duration_min, note)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE (
			SELECT id FROM visit_events
			WHERE subject_id = $2 AND kind <> 'GUEST_ENTRY'
			ORDER BY occurred_at DESC, id DESC
			LIMIT 1
		) IS NOT DISTINCT FROM $8
	`, ev.ID, ev.SubjectID, ev.LocationID, ev.Kind, ev.OccurredAt, ev.RecordedDurationMinutes, ev.Note, prevID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// insertEvent appends unconditionally. Guest counter events have no
// per-subject ordering to protect.
func (s *Service) insertEvent(ctx context.Context, ev VisitEvent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO visit_events (id, subject_id, location_id, kind, occurred_at, duration_min, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ev.ID, ev.SubjectID, ev.LocationID, ev.Kind, ev.OccurredAt, ev.RecordedDurationMinutes, ev.Note)
	return err
}

// lastEventsInWindow returns the most recent non-guest event per subject
// within [from, to).
func (s *Service) lastEventsInWindow(ctx context.Context, from, to time.Time) ([]VisitEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (subject_id) id, subject_id, location_id, kind, occurred_at, duration_min, COALESCE(note,'')
		FROM visit_events
		WHERE subject_id IS NOT NULL AND kind <> 'GUEST_ENTRY'
		  AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY subject_id, occurred_at DESC, id DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []VisitEvent
	for rows.Next() {
		var ev VisitEvent
		if err := rows.Scan(&ev.ID, &ev.SubjectID, &ev.LocationID, &ev.Kind, &ev.OccurredAt, &ev.RecordedDurationMinutes, &ev.Note); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *Service) guestCountsInWindow(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT location_id, COUNT(*)
		FROM visit_events
		WHERE kind = 'GUEST_ENTRY' AND occurred_at >= $1 AND occurred_at < $2
		GROUP BY location_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var locationID string
		var n int
		if err := rows.Scan(&locationID, &n); err != nil {
			return nil, err
		}
		counts[locationID] = n
	}
	return counts, nil
}
