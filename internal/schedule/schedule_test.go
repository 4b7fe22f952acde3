package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func TestIsWithinSendWindow(t *testing.T) {
	t.Parallel()

	loc := seoul(t)
	// 2025-11-10 is a Monday.
	sendAt := time.Date(2025, time.November, 10, 7, 30, 0, 0, loc)
	cfg := Config{Timezone: "Asia/Seoul", SendTime: "07:30", Days: []string{"mon", "WED"}}

	tests := []struct {
		name string
		ref  time.Time
		want bool
	}{
		{name: "exactly at send time", ref: sendAt, want: true},
		{name: "one minute before", ref: sendAt.Add(-time.Minute), want: false},
		{name: "inside window", ref: sendAt.Add(4 * time.Minute), want: true},
		{name: "window end is exclusive", ref: sendAt.Add(5 * time.Minute), want: false},
		{name: "unconfigured day", ref: sendAt.Add(24 * time.Hour), want: false},
		{name: "configured day in another zone", ref: sendAt.Add(48 * time.Hour).UTC(), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsWithinSendWindow(cfg, DefaultWindowMinutes, tc.ref))
		})
	}
}

func TestIsWithinSendWindowFailsClosed(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.November, 10, 7, 30, 0, 0, seoul(t))

	assert.False(t, IsWithinSendWindow(Config{Timezone: "Asia/Seoul", SendTime: "07:30", Days: []string{"Funday"}}, 5, ref))
	assert.False(t, IsWithinSendWindow(Config{Timezone: "Asia/Seoul", SendTime: "07:30"}, 5, ref))
	assert.False(t, IsWithinSendWindow(Config{Timezone: "Asia/Seoul", SendTime: "late", Days: []string{"Mon"}}, 5, ref))
	assert.False(t, IsWithinSendWindow(Config{Timezone: "Asia/Seoul", SendTime: "07:30", Days: []string{"Mon"}}, 0, ref))
}

func TestIsWithinSendWindowWideWindow(t *testing.T) {
	t.Parallel()

	loc := seoul(t)
	cfg := Config{Timezone: "Asia/Seoul", SendTime: "07:30", Days: []string{"Mon"}}

	assert.True(t, IsWithinSendWindow(cfg, 24*60, time.Date(2025, time.November, 10, 23, 59, 0, 0, loc)))
	assert.False(t, IsWithinSendWindow(cfg, 24*60, time.Date(2025, time.November, 10, 7, 29, 0, 0, loc)))
}

func TestUnknownTimezoneFallsBackToDefault(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.November, 10, 7, 30, 0, 0, seoul(t))
	cfg := Config{Timezone: "Mars/Olympus", SendTime: "07:30", Days: []string{"Mon"}}

	assert.True(t, IsWithinSendWindow(cfg, 5, ref))
}

func TestNormalizeWeekday(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mon", NormalizeWeekday("monday"))
	assert.Equal(t, "Tue", NormalizeWeekday("TUE"))
	assert.Equal(t, "Sat", NormalizeWeekday(" sat "))
	assert.Equal(t, "", NormalizeWeekday(""))
	assert.Equal(t, -1, WeekdayIndex(NormalizeWeekday("xyz")))
	assert.Equal(t, int(time.Friday), WeekdayIndex(NormalizeWeekday("fri")))
}

func TestParseSendTime(t *testing.T) {
	t.Parallel()

	minutes, err := ParseSendTime("07:05")
	require.NoError(t, err)
	assert.Equal(t, 425, minutes)

	_, err = ParseSendTime("25:00")
	assert.Error(t, err)
	_, err = ParseSendTime("ab:cd")
	assert.Error(t, err)
}

func TestComputeNextDeliveryLabel(t *testing.T) {
	t.Parallel()

	loc := seoul(t)
	monday := time.Date(2025, time.November, 10, 6, 0, 0, 0, loc)

	tests := []struct {
		name string
		days []string
		ref  time.Time
		want string
	}{
		{name: "later today", days: []string{"Mon"}, ref: monday, want: "오늘 07:30"},
		{name: "tomorrow", days: []string{"Tue"}, ref: monday, want: "내일 07:30"},
		{name: "later this week", days: []string{"Thu"}, ref: monday, want: "다음 목요일 07:30"},
		{name: "same day already passed snaps a week", days: []string{"Mon"}, ref: monday.Add(2 * time.Hour), want: "다음 월요일 07:30"},
		{name: "exactly at send time is not future", days: []string{"Mon", "Tue"}, ref: monday.Add(90 * time.Minute), want: "내일 07:30"},
		{name: "no valid days", days: []string{"nope"}, ref: monday, want: "다음 07:30"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Timezone: "Asia/Seoul", SendTime: "07:30", Days: tc.days}
			assert.Equal(t, tc.want, ComputeNextDeliveryLabel(cfg, tc.ref))
		})
	}
}

func TestFindNextDeliveryPicksClosestDay(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.November, 14, 9, 0, 0, 0, seoul(t)) // Friday
	next, ok := FindNextDelivery(Config{Timezone: "Asia/Seoul", SendTime: "08:00", Days: []string{"Mon", "Sat", "Fri"}}, ref)

	require.True(t, ok)
	assert.Equal(t, "Sat", next.Weekday)
	assert.Equal(t, 1, next.DaysAhead)
	assert.Equal(t, -60, next.MinutesAhead)
}

func TestEvaluatorUsesClock(t *testing.T) {
	t.Parallel()

	loc := seoul(t)
	ev := NewEvaluator(FixedClock(time.Date(2025, time.November, 10, 7, 31, 0, 0, loc)))
	cfg := Config{Timezone: "Asia/Seoul", SendTime: "07:30", Days: []string{"Mon"}}

	assert.True(t, IsWithinSendWindow(cfg, DefaultWindowMinutes, ev.clock.Now()))
	assert.Equal(t, "다음 월요일 07:30", ev.NextLabel(cfg))
}

func TestLocalDate(t *testing.T) {
	t.Parallel()

	instant := time.Date(2025, time.November, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-11-10", LocalDate(instant, seoul(t)))
	assert.Equal(t, "2025-11-09", LocalDate(instant, nil))
}
