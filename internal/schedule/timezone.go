package schedule

import (
	"strings"
	"sync"
	"time"
)

// DefaultTimezone is used when a group carries no usable IANA name.
const DefaultTimezone = "Asia/Seoul"

var locations sync.Map

// LoadLocation resolves an IANA name, caching results. Empty or unknown names
// resolve to fallback, or UTC when fallback is nil.
func LoadLocation(name string, fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if cached, ok := locations.Load(name); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	locations.Store(name, loc)
	return loc
}

// LocalDate formats t as YYYY-MM-DD in loc; it is the idempotency date of a digest.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.DateOnly)
}
