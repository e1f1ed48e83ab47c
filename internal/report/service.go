package report

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/tsfopeneyes/center-management-sub001/internal/db"
	"github.com/tsfopeneyes/center-management-sub001/internal/presence"
)

// LocationNamer resolves location ids to display names.
type LocationNamer interface {
	LocationNames(ctx context.Context) (map[string]string, error)
}

type Service struct {
	db     db.Querier
	namer  LocationNamer
	weekOf WeekFunc
	log    zerolog.Logger
}

// NewService builds a reconstructor over the event log. namer and weekOf
// may be nil: location ids are then reported verbatim and weeks use the
// default ISO bucketing.
func NewService(querier db.Querier, namer LocationNamer, weekOf WeekFunc) *Service {
	return &Service{
		db:     querier,
		namer:  namer,
		weekOf: weekOf,
		log:    zerolog.New(os.Stderr).With().Timestamp().Str("component", "report").Logger(),
	}
}

// Sessions reconstructs visit sessions for the filtered event range and
// returns them together with the orphan-event drop count.
func (s *Service) Sessions(ctx context.Context, f Filter) ([]VisitSession, int, error) {
	events, err := s.eventsInRange(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	nameOf := func(id string) string { return id }
	if s.namer != nil {
		names, err := s.namer.LocationNames(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("location names unavailable, reporting ids")
		} else {
			nameOf = func(id string) string {
				if name, ok := names[id]; ok {
					return name
				}
				return id
			}
		}
	}

	sessions, dropped := Reconstruct(events, nameOf, s.weekOf)
	if dropped > 0 {
		s.log.Warn().Int("dropped", dropped).
			Time("from", f.From).Time("to", f.To).
			Msg("orphan events dropped during reconstruction")
	}
	return sessions, dropped, nil
}

func (s *Service) eventsInRange(ctx context.Context, f Filter) ([]presence.VisitEvent, error) {
	query := `
		SELECT id, subject_id, location_id, kind, occurred_at, duration_min, COALESCE(note,'')
		FROM visit_events
		WHERE subject_id IS NOT NULL AND kind <> 'GUEST_ENTRY'
		  AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, id
	`
	args := []any{f.From, f.To}
	if f.SubjectID != "" {
		query = `
		SELECT id, subject_id, location_id, kind, occurred_at, duration_min, COALESCE(note,'')
		FROM visit_events
		WHERE subject_id = $3 AND kind <> 'GUEST_ENTRY'
		  AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, id
	`
		args = append(args, f.SubjectID)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []presence.VisitEvent
	for rows.Next() {
		var ev presence.VisitEvent
		if err := rows.Scan(&ev.ID, &ev.SubjectID, &ev.LocationID, &ev.Kind, &ev.OccurredAt, &ev.RecordedDurationMinutes, &ev.Note); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
