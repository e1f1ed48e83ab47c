package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tsfopeneyes/center-management-sub001/internal/db"
	"github.com/tsfopeneyes/center-management-sub001/internal/shared/calweek"
)

var (
	ErrUnknownSubject     = errors.New("unknown subject")
	ErrAmbiguousSubject   = errors.New("ambiguous subject")
	ErrStoreUnavailable   = errors.New("event store unavailable")
	ErrTransitionConflict = errors.New("concurrent transition conflict")
)

const (
	// How many times a losing terminal re-reads and re-decides before the
	// identification is surfaced as a conflict.
	maxTransitionAttempts = 3

	visitMilestoneEvery = 10

	enrichKeyTTL = 48 * time.Hour
)

// Broadcaster fans an appended event out to live dashboards.
type Broadcaster interface {
	Broadcast(locationID string, payload []byte)
}

// AttendanceMarker marks a subject's program registrations for the day as
// attended. Returns how many registrations were marked.
type AttendanceMarker interface {
	MarkToday(ctx context.Context, subjectID string, at time.Time) (int, error)
}

type Service struct {
	db       db.Querier
	redis    *redis.Client
	hub      Broadcaster
	programs AttendanceMarker
	tz       *time.Location
	locks    subjectLocks
	log      zerolog.Logger
	nowFn    func() time.Time
}

func NewService(querier db.Querier, redisClient *redis.Client, hub Broadcaster, programs AttendanceMarker, tz *time.Location) *Service {
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		db:       querier,
		redis:    redisClient,
		hub:      hub,
		programs: programs,
		tz:       tz,
		log:      zerolog.New(os.Stderr).With().Timestamp().Str("component", "presence").Logger(),
		nowFn:    time.Now,
	}
}

// Identify handles one accepted kiosk identification: read the subject's
// last event, decide the transition, append exactly one event.
//
// The decision looks only at the last event: none or CHECK_OUT opens a new
// session at the terminal; CHECK_IN/MOVE at the terminal's own location
// closes the session; CHECK_IN/MOVE elsewhere moves the subject here.
//
// The read-decide-append round trip is serialized per subject and the
// append is conditional on the last event id, so two terminals racing on
// one subject cannot double-append; the loser re-reads and re-decides.
func (s *Service) Identify(ctx context.Context, subjectID, terminalLocationID string) (IdentifyResult, error) {
	if subjectID == "" || terminalLocationID == "" {
		return IdentifyResult{}, errors.New("subject_id and location_id required")
	}

	unlock := s.locks.lock(subjectID)
	defer unlock()

	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		last, found, err := s.lastEvent(ctx, subjectID)
		if err != nil {
			return IdentifyResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		kind := decide(last, found, terminalLocationID)
		var prevID *string
		if found {
			prevID = &last.ID
		}

		ev := VisitEvent{
			ID:         uuid.NewString(),
			SubjectID:  &subjectID,
			LocationID: terminalLocationID,
			Kind:       kind,
			OccurredAt: s.nowFn().In(s.tz),
		}

		ok, err := s.appendIf(ctx, ev, prevID)
		if err != nil {
			return IdentifyResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !ok {
			s.log.Warn().Str("subject_id", subjectID).Int("attempt", attempt).
				Msg("lost append race, re-deciding")
			continue
		}

		res := IdentifyResult{Kind: kind, Event: ev, Presence: presenceAfter(ev)}
		if kind == KindCheckIn {
			s.enrichCheckIn(ctx, subjectID, ev.OccurredAt, &res)
		}
		s.broadcast(ev)
		return res, nil
	}
	return IdentifyResult{}, ErrTransitionConflict
}

func decide(last VisitEvent, found bool, terminalLocationID string) EventKind {
	if !found || last.Kind == KindCheckOut {
		return KindCheckIn
	}
	if last.LocationID == terminalLocationID {
		return KindCheckOut
	}
	return KindMove
}

func presenceAfter(ev VisitEvent) Presence {
	switch ev.Kind {
	case KindCheckIn:
		return Presence{In: true, LocationID: ev.LocationID, Since: ev.OccurredAt}
	case KindMove:
		return Presence{In: true, LocationID: ev.LocationID}
	default:
		return Presence{}
	}
}

// RecordGuest appends an anonymous GUEST_ENTRY counter event. Guests never
// participate in sessions or presence state.
func (s *Service) RecordGuest(ctx context.Context, locationID, note string) (VisitEvent, error) {
	if locationID == "" {
		return VisitEvent{}, errors.New("location_id required")
	}
	ev := VisitEvent{
		ID:         uuid.NewString(),
		LocationID: locationID,
		Kind:       KindGuestEntry,
		OccurredAt: s.nowFn().In(s.tz),
		Note:       note,
	}
	if err := s.insertEvent(ctx, ev); err != nil {
		return VisitEvent{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.broadcast(ev)
	return ev, nil
}

// Occupancy derives who is inside each room right now from today's last
// event per subject, plus the day's guest counters.
func (s *Service) Occupancy(ctx context.Context) ([]LocationOccupancy, error) {
	now := s.nowFn().In(s.tz)
	dayStart := calweek.StartOfDay(now, s.tz)

	lastEvents, err := s.lastEventsInWindow(ctx, dayStart, now)
	if err != nil {
		return nil, err
	}
	guests, err := s.guestCountsInWindow(ctx, dayStart, now)
	if err != nil {
		return nil, err
	}

	occupants := map[string][]string{}
	for _, ev := range lastEvents {
		if ev.Kind != KindCheckIn && ev.Kind != KindMove {
			continue
		}
		occupants[ev.LocationID] = append(occupants[ev.LocationID], *ev.SubjectID)
	}

	locationIDs := map[string]struct{}{}
	for id := range occupants {
		locationIDs[id] = struct{}{}
	}
	for id := range guests {
		locationIDs[id] = struct{}{}
	}

	out := make([]LocationOccupancy, 0, len(locationIDs))
	for id := range locationIDs {
		subjects := occupants[id]
		sort.Strings(subjects)
		out = append(out, LocationOccupancy{LocationID: id, Occupants: subjects, GuestCount: guests[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

// enrichCheckIn decorates a fresh check-in with streak, first-visit and
// program-attendance info. Best effort: failures are logged, never
// surfaced, and never undo the appended event.
func (s *Service) enrichCheckIn(ctx context.Context, subjectID string, at time.Time, res *IdentifyResult) {
	if s.programs != nil {
		marked, err := s.programs.MarkToday(ctx, subjectID, at)
		if err != nil {
			s.log.Warn().Err(err).Str("subject_id", subjectID).Msg("program auto-mark failed")
		} else {
			res.ProgramsMarked = marked
		}
	}

	if s.redis == nil {
		return
	}

	firstKey := "presence:first:" + at.Format("2006-01-02") + ":" + subjectID
	first, err := s.redis.SetNX(ctx, firstKey, "1", enrichKeyTTL).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("subject_id", subjectID).Msg("first-visit flag failed")
		return
	}
	res.FirstVisitOfDay = first
	if !first {
		return
	}

	// The streak key expires two days after the last first-visit, so a
	// skipped day restarts the count at 1.
	streakKey := "presence:streak:" + subjectID
	if streak, err := s.redis.Incr(ctx, streakKey).Result(); err == nil {
		s.redis.Expire(ctx, streakKey, enrichKeyTTL)
		res.StreakDays = int(streak)
	}

	if total, err := s.redis.Incr(ctx, "presence:visits:"+subjectID).Result(); err == nil {
		if total > 0 && total%visitMilestoneEvery == 0 {
			res.MilestoneVisits = int(total)
		}
	}
}

func (s *Service) broadcast(ev VisitEvent) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.hub.Broadcast(ev.LocationID, payload)
}
