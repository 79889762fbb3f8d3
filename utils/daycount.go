package utils

import (
	"fmt"
	"strings"
	"time"
)

// Day count conventions understood by YearFraction.
const (
	ACT360  = "ACT/360"
	ACT365F = "ACT/365F"
	E30360  = "30E/360"
	U30360  = "30/360"
)

// ParseDayCount normalizes a day count name. An empty name selects ACT/365F.
func ParseDayCount(s string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return ACT365F, nil
	case "ACT/360", "A360":
		return ACT360, nil
	case "ACT/365F", "ACT/365", "A365F":
		return ACT365F, nil
	case "30E/360":
		return E30360, nil
	case "30/360":
		return U30360, nil
	default:
		return "", fmt.Errorf("ParseDayCount: unsupported convention %q", s)
	}
}

// YearFraction computes the year fraction between two dates using the specified day count convention.
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case ACT360:
		return Days(start, end) / 360.0
	case E30360, U30360:
		// D1 and D2 are capped at 30
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}
