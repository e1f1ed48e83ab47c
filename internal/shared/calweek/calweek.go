package calweek

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identifier buckets a date into its ISO week label, e.g. "2026-W35".
// Reporting groups visit sessions by this label.
func Identifier(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns midnight of t's calendar day in the given zone.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// At combines a calendar day with a wall-clock "HH:MM" string in the given
// zone. Used to turn the configured closing time into a cutoff instant.
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	day = day.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}
