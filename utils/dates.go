package utils

import (
	"fmt"
	"time"
)

// DateLayout is the ISO layout used by curve-set files and CLI flags.
const DateLayout = "2006-01-02"

// ParseDate converts YYYY-MM-DD to a UTC time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %q: %w", s, err)
	}
	return t, nil
}

// Days returns the number of calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, clamping to the last day of the target
// month instead of letting Go normalize into the following month.
func AddMonth(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// TimeFromDate is the curve time axis: ACT/365F years from the curve date.
func TimeFromDate(curveDate, d time.Time) float64 {
	return YearFraction(curveDate, d, ACT365F)
}
