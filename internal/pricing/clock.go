package pricing

import (
	"strings"
	"time"
)

// Clock derives the calendar inputs of the pricing engine (hour of day
// and weekday name) from a timestamp, always in the facility's fixed
// timezone.  Using one configured zone rather than the server's local
// zone keeps pricing outcomes identical across deployments; the zone is
// set once via FACILITY_TZ (see internal/config).
type Clock struct {
	loc *time.Location
}

// NewClock returns a Clock pinned to the given location.  A nil
// location falls back to UTC.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc}
}

// HourOfDay returns the hour (0–23) of t in the facility timezone.
func (c Clock) HourOfDay(t time.Time) int {
	return t.In(c.loc).Hour()
}

// Weekday returns the lowercase English weekday name of t in the
// facility timezone, matching the values stored in pricing rules.
func (c Clock) Weekday(t time.Time) string {
	return strings.ToLower(t.In(c.loc).Weekday().String())
}
