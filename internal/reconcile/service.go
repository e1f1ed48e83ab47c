package reconcile

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tsfopeneyes/center-management-sub001/internal/db"
	"github.com/tsfopeneyes/center-management-sub001/internal/presence"
	"github.com/tsfopeneyes/center-management-sub001/internal/shared/calweek"
)

const forcedCloseNote = "system auto-closed"

type Service struct {
	db          db.Querier
	workers     int
	tz          *time.Location
	closingTime string
	log         zerolog.Logger
	nowFn       func() time.Time
}

// Result is what the external scheduler gets back from one run.
type Result struct {
	Closed int `json:"closed"`
	Failed int `json:"failed"`
}

func NewService(querier db.Querier, workers int, tz *time.Location, closingTime string) *Service {
	if workers < 1 {
		workers = 1
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		db:          querier,
		workers:     workers,
		tz:          tz,
		closingTime: closingTime,
		log:         zerolog.New(os.Stderr).With().Timestamp().Str("component", "reconcile").Logger(),
		nowFn:       time.Now,
	}
}

// ReconcileDay force-closes every session still open on the given day,
// stamping the checkout at the cutoff instant with the session's recorded
// duration. Subjects are re-queried and re-derived one by one, so a second
// run sees the first run's checkouts and closes nothing twice; there is no
// cached stuck list. Per-subject failures are logged and counted, never
// fatal to the batch.
func (s *Service) ReconcileDay(ctx context.Context, day, cutoff time.Time) (Result, error) {
	dayStart := calweek.StartOfDay(day, s.tz)
	now := s.nowFn().In(s.tz)

	subjects, err := s.subjectsWithEvents(ctx, dayStart, now)
	if err != nil {
		return Result{}, err
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res Result
	)
	sem := make(chan struct{}, s.workers)
	for _, subjectID := range subjects {
		sem <- struct{}{}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			closed, err := s.closeIfOpen(ctx, id, dayStart, cutoff)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				s.log.Error().Err(err).Str("subject_id", id).Msg("forced close failed, skipping subject")
				return
			}
			if closed {
				res.Closed++
			}
		}(subjectID)
	}
	wg.Wait()

	s.log.Info().Int("closed", res.Closed).Int("failed", res.Failed).
		Str("day", dayStart.Format("2006-01-02")).Msg("reconciliation finished")
	return res, nil
}

// ClosingTime is the configured default cutoff clock, e.g. "22:00".
func (s *Service) ClosingTime() string { return s.closingTime }

func (s *Service) Timezone() *time.Location { return s.tz }

func (s *Service) subjectsWithEvents(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT subject_id
		FROM visit_events
		WHERE subject_id IS NOT NULL AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY subject_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subjects = append(subjects, id)
	}
	return subjects, nil
}

// closeIfOpen re-queries one subject's events for the day and appends a
// forced checkout when the fold still says IN. The fresh query is the
// consistency point: a subject who checked out for real between the batch
// scan and now resolves OUT here.
func (s *Service) closeIfOpen(ctx context.Context, subjectID string, dayStart, cutoff time.Time) (bool, error) {
	events, err := s.subjectDayEvents(ctx, subjectID, dayStart)
	if err != nil {
		return false, err
	}

	state := presence.Resolve(events, s.nowFn().In(s.tz))
	if !state.In {
		return false, nil
	}

	minutes := int(cutoff.Sub(state.Since).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	// A check-in after the cutoff still closes at duration zero, but the
	// checkout must sort after the check-in or a re-run would derive IN
	// again and close once more.
	closeAt := cutoff
	if state.Since.After(cutoff) {
		closeAt = state.Since.Add(time.Second)
	}

	ev := presence.VisitEvent{
		ID:                      uuid.NewString(),
		SubjectID:               &subjectID,
		LocationID:              state.LocationID,
		Kind:                    presence.KindCheckOut,
		OccurredAt:              closeAt,
		RecordedDurationMinutes: &minutes,
		Note:                    forcedCloseNote,
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO visit_events (id, subject_id, location_id, kind, occurred_at, duration_min, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ev.ID, ev.SubjectID, ev.LocationID, ev.Kind, ev.OccurredAt, ev.RecordedDurationMinutes, ev.Note)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) subjectDayEvents(ctx context.Context, subjectID string, dayStart time.Time) ([]presence.VisitEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, subject_id, location_id, kind, occurred_at, duration_min, COALESCE(note,'')
		FROM visit_events
		WHERE subject_id = $1 AND kind <> 'GUEST_ENTRY' AND occurred_at >= $2
		ORDER BY occurred_at, id
	`, subjectID, dayStart)
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
