package instrument

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/curvecal/utils"
)

// Tenor is a period such as 1W, 3M or 10Y. ON and TN are overnight and
// tomorrow-next.
type Tenor struct {
	N    int
	Unit byte // 'D', 'W', 'M' or 'Y'
}

// ParseTenor converts tenor strings like "1W", "3M", "10Y" or "ON".
func ParseTenor(s string) (Tenor, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	switch s {
	case "ON", "O/N":
		return Tenor{N: 1, Unit: 'D'}, nil
	case "TN", "T/N":
		return Tenor{N: 2, Unit: 'D'}, nil
	}
	if len(s) < 2 {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid tenor %q", s)
	}
	unit := s[len(s)-1]
	switch unit {
	case 'D', 'W', 'M', 'Y':
	default:
		return Tenor{}, fmt.Errorf("ParseTenor: invalid unit in %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid count in %q", s)
	}
	return Tenor{N: n, Unit: unit}, nil
}

// Months reports the tenor in months for M and Y tenors.
func (t Tenor) Months() (int, bool) {
	switch t.Unit {
	case 'M':
		return t.N, true
	case 'Y':
		return 12 * t.N, true
	default:
		return 0, false
	}
}

// AddTo applies the tenor to an unadjusted date.
func (t Tenor) AddTo(d time.Time) time.Time {
	switch t.Unit {
	case 'D':
		return d.AddDate(0, 0, t.N)
	case 'W':
		return d.AddDate(0, 0, 7*t.N)
	default:
		m, _ := t.Months()
		return utils.AddMonth(d, m)
	}
}

func (t Tenor) String() string {
	return strconv.Itoa(t.N) + string(t.Unit)
}
