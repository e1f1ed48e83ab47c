package presence

import (
	"testing"
	"time"
)

func subj(id string) *string { return &id }

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 31, hour, minute, 0, 0, time.UTC)
}

func TestResolveEmpty(t *testing.T) {
	state := Resolve(nil, at(12, 0))
	if state.In {
		t.Fatalf("expected OUT for empty log")
	}
}

func TestResolveCheckInMoveOut(t *testing.T) {
	events := []VisitEvent{
		{SubjectID: subj("s1"), LocationID: "loc-a", Kind: KindCheckIn, OccurredAt: at(9, 0)},
		{SubjectID: subj("s1"), LocationID: "loc-b", Kind: KindMove, OccurredAt: at(10, 0)},
		{SubjectID: subj("s1"), LocationID: "loc-b", Kind: KindCheckOut, OccurredAt: at(11, 0)},
	}

	state := Resolve(events, at(10, 30))
	if !state.In || state.LocationID != "loc-b" {
		t.Fatalf("expected IN loc-b at 10:30, got %+v", state)
	}
	if !state.Since.Equal(at(9, 0)) {
		t.Fatalf("expected since to stay at check-in time, got %v", state.Since)
	}

	state = Resolve(events, at(12, 0))
	if state.In {
		t.Fatalf("expected OUT after checkout")
	}
}

func TestResolveOnlyLastEventMatters(t *testing.T) {
	events := []VisitEvent{
		{SubjectID: subj("s1"), LocationID: "loc-a", Kind: KindCheckIn, OccurredAt: at(9, 0)},
		{SubjectID: subj("s1"), LocationID: "loc-a", Kind: KindCheckOut, OccurredAt: at(10, 0)},
		{SubjectID: subj("s1"), LocationID: "loc-c", Kind: KindCheckIn, OccurredAt: at(11, 0)},
	}

	state := Resolve(events, at(12, 0))
	if !state.In || state.LocationID != "loc-c" || !state.Since.Equal(at(11, 0)) {
		t.Fatalf("expected IN loc-c since 11:00, got %+v", state)
	}
}

func TestResolveIgnoresEventsAfterAsOf(t *testing.T) {
	events := []VisitEvent{
		{SubjectID: subj("s1"), LocationID: "loc-a", Kind: KindCheckIn, OccurredAt: at(9, 0)},
		{SubjectID: subj("s1"), LocationID: "loc-a", Kind: KindCheckOut, OccurredAt: at(17, 0)},
	}

	state := Resolve(events, at(10, 0))
	if !state.In {
		t.Fatalf("expected IN before the later checkout")
	}
}

func TestResolveMalformedFirstEvent(t *testing.T) {
	for _, kind := range []EventKind{KindMove, KindCheckOut} {
		events := []VisitEvent{
			{SubjectID: subj("s1"), LocationID: "loc-a", Kind: kind, OccurredAt: at(9, 0)},
		}
		if state := Resolve(events, at(10, 0)); state.In {
			t.Fatalf("expected OUT for leading %s", kind)
		}
	}
}

func TestResolveIgnoresGuestEntries(t *testing.T) {
	events := []VisitEvent{
		{LocationID: "loc-a", Kind: KindGuestEntry, OccurredAt: at(9, 0)},
		{SubjectID: subj("s1"), LocationID: "loc-a", Kind: KindCheckIn, OccurredAt: at(9, 30)},
		{LocationID: "loc-a", Kind: KindGuestEntry, OccurredAt: at(10, 0)},
	}

	state := Resolve(events, at(11, 0))
	if !state.In || state.LocationID != "loc-a" {
		t.Fatalf("expected guest entries to be ignored, got %+v", state)
	}
}
