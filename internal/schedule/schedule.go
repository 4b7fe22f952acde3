// Package schedule decides whether a keyword group is due for delivery.
package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultWindowMinutes is the on-time window after a group's send time.
const DefaultWindowMinutes = 5

// dayOrder is indexed by time.Weekday.
var dayOrder = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var weekdayLabels = map[string]string{
	"Sun": "일",
	"Mon": "월",
	"Tue": "화",
	"Wed": "수",
	"Thu": "목",
	"Fri": "금",
	"Sat": "토",
}

// Config is the schedule part of a keyword group.
type Config struct {
	Timezone string
	SendTime string
	Days     []string
}

// ZonedMeta is a reference instant seen from a group's timezone.
type ZonedMeta struct {
	Weekday              string
	WeekdayIndex         int
	MinutesSinceMidnight int
}

// NormalizeWeekday turns "monday", "MON" or "Mon" into "Mon". The result is
// not validated; callers check it against the known codes.
func NormalizeWeekday(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	runes := []rune(label)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes[:1])) + strings.ToLower(string(runes[1:]))
}

// WeekdayIndex returns the time.Weekday index of a normalized code, or -1.
func WeekdayIndex(code string) int {
	for i, day := range dayOrder {
		if day == code {
			return i
		}
	}
	return -1
}

// ParseSendTime converts "HH:MM" into minutes since midnight.
func ParseSendTime(sendTime string) (int, error) {
	hourPart, minutePart, found := strings.Cut(strings.TrimSpace(sendTime), ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, fmt.Errorf("parse send time %q: %w", sendTime, err)
	}
	minute := 0
	if found {
		minute, err = strconv.Atoi(minutePart)
		if err != nil {
			return 0, fmt.Errorf("parse send time %q: %w", sendTime, err)
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("send time %q out of range", sendTime)
	}
	return hour*60 + minute, nil
}

// Zoned projects ref into loc.
func Zoned(ref time.Time, loc *time.Location) ZonedMeta {
	local := ref.In(loc)
	idx := int(local.Weekday())
	return ZonedMeta{
		Weekday:              dayOrder[idx],
		WeekdayIndex:         idx,
		MinutesSinceMidnight: local.Hour()*60 + local.Minute(),
	}
}

// IsWithinSendWindow reports whether ref falls on one of the configured days
// and no more than windowMinutes (exclusive) after the configured send time.
// Unknown weekdays and malformed send times never match.
func IsWithinSendWindow(cfg Config, windowMinutes int, ref time.Time) bool {
	if windowMinutes <= 0 {
		return false
	}
	meta := Zoned(ref, LoadLocation(cfg.Timezone, defaultLocation()))

	matched := false
	for _, day := range cfg.Days {
		if NormalizeWeekday(day) == meta.Weekday {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	scheduled, err := ParseSendTime(cfg.SendTime)
	if err != nil {
		return false
	}
	diff := meta.MinutesSinceMidnight - scheduled
	return diff >= 0 && diff < windowMinutes
}

// NextDelivery is the closest strictly-future slot among the configured days.
type NextDelivery struct {
	DaysAhead    int
	MinutesAhead int
	Weekday      string
}

// FindNextDelivery returns false when no configured day is a valid weekday or
// the send time cannot be parsed.
func FindNextDelivery(cfg Config, ref time.Time) (NextDelivery, bool) {
	scheduled, err := ParseSendTime(cfg.SendTime)
	if err != nil {
		return NextDelivery{}, false
	}
	meta := Zoned(ref, LoadLocation(cfg.Timezone, defaultLocation()))

	best := NextDelivery{}
	bestTotal := math.MaxInt
	for _, day := range cfg.Days {
		idx := WeekdayIndex(NormalizeWeekday(day))
		if idx < 0 {
			continue
		}
		daysAhead := (idx - meta.WeekdayIndex + 7) % 7
		minutesAhead := scheduled - meta.MinutesSinceMidnight
		if daysAhead == 0 && minutesAhead <= 0 {
			daysAhead = 7
		}
		total := daysAhead*24*60 + minutesAhead
		if total < bestTotal {
			bestTotal = total
			best = NextDelivery{DaysAhead: daysAhead, MinutesAhead: minutesAhead, Weekday: dayOrder[idx]}
		}
	}
	if bestTotal == math.MaxInt {
		return NextDelivery{}, false
	}
	return best, true
}

// ComputeNextDeliveryLabel renders the next slot for display.
func ComputeNextDeliveryLabel(cfg Config, ref time.Time) string {
	next, ok := FindNextDelivery(cfg, ref)
	if !ok {
		return "다음 " + cfg.SendTime
	}
	switch next.DaysAhead {
	case 0:
		return "오늘 " + cfg.SendTime
	case 1:
		return "내일 " + cfg.SendTime
	default:
		return fmt.Sprintf("다음 %s요일 %s", weekdayLabels[next.Weekday], cfg.SendTime)
	}
}

func defaultLocation() *time.Location {
	return LoadLocation(DefaultTimezone, time.UTC)
}

// Evaluator binds the schedule functions to a clock.
type Evaluator struct {
	clock Clock
}

// NewEvaluator uses the system clock when clock is nil.
func NewEvaluator(clock Clock) *Evaluator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Evaluator{clock: clock}
}

// NextLabel renders the next delivery slot relative to now.
func (e *Evaluator) NextLabel(cfg Config) string {
	return ComputeNextDeliveryLabel(cfg, e.clock.Now())
}
