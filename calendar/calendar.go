package calendar

import (
	"fmt"
	"strings"
	"time"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	TARGET CalendarID = "TARGET"
	JPN    CalendarID = "JPN"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
	// WEEKENDS treats every weekday as a business day.
	WEEKENDS CalendarID = "WEEKENDS"
)

type monthDay struct {
	month time.Month
	day   int
}

// Fixed-date holidays only. Moveable feasts are not modelled.
var fixedHolidays = map[CalendarID][]monthDay{
	TARGET: {{time.January, 1}, {time.May, 1}, {time.December, 25}, {time.December, 26}},
	JPN:    {{time.January, 1}, {time.January, 2}, {time.January, 3}, {time.December, 31}},
	USD:    {{time.January, 1}, {time.June, 19}, {time.July, 4}, {time.November, 11}, {time.December, 25}},
	KRW:    {{time.January, 1}, {time.March, 1}, {time.May, 5}, {time.August, 15}, {time.October, 3}, {time.October, 9}, {time.December, 25}},
}

// Parse resolves a calendar name. An empty name selects WEEKENDS.
func Parse(s string) (CalendarID, error) {
	id := CalendarID(strings.ToUpper(strings.TrimSpace(s)))
	if id == "" {
		return WEEKENDS, nil
	}
	if id == WEEKENDS {
		return id, nil
	}
	if _, ok := fixedHolidays[id]; !ok {
		return "", fmt.Errorf("calendar.Parse: unknown calendar %q", s)
	}
	return id, nil
}

func isHoliday(cal CalendarID, t time.Time) bool {
	for _, h := range fixedHolidays[cal] {
		if t.Month() == h.month && t.Day() == h.day {
			return true
		}
	}
	return false
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}
