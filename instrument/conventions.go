package instrument

import (
	"fmt"
	"strings"

	"github.com/meenmo/curvecal/utils"
)

// Preset leg conventions for EUR, USD and JPY swaps.
var (
	// Overnight legs compound daily and pay annually.
	ESTRFloat  = LegConvention{FrequencyMonths: 12, DayCount: utils.ACT360}
	SOFRFloat  = LegConvention{FrequencyMonths: 12, DayCount: utils.ACT360}
	TONARFloat = LegConvention{FrequencyMonths: 12, DayCount: utils.ACT365F}

	EURIBOR3MFloat = LegConvention{FrequencyMonths: 3, DayCount: utils.ACT360}
	EURIBOR6MFloat = LegConvention{FrequencyMonths: 6, DayCount: utils.ACT360}
	TIBOR3MFloat   = LegConvention{FrequencyMonths: 3, DayCount: utils.ACT365F}
	TIBOR6MFloat   = LegConvention{FrequencyMonths: 6, DayCount: utils.ACT365F}

	// EUR OIS fixed leg: annual, ACT/360.
	ESTRFixed = LegConvention{FrequencyMonths: 12, DayCount: utils.ACT360}
	// EUR IBOR fixed leg: annual, 30/360.
	EuriborFixed = LegConvention{FrequencyMonths: 12, DayCount: utils.U30360}
	SOFRFixed    = LegConvention{FrequencyMonths: 12, DayCount: utils.ACT360}
	TONARFixed   = LegConvention{FrequencyMonths: 12, DayCount: utils.ACT365F}
	// JPY IBOR fixed leg: semiannual, ACT/365F.
	TiborFixed = LegConvention{FrequencyMonths: 6, DayCount: utils.ACT365F}
)

var legPresets = map[string]LegConvention{
	"ESTR":          ESTRFloat,
	"SOFR":          SOFRFloat,
	"TONAR":         TONARFloat,
	"EURIBOR3M":     EURIBOR3MFloat,
	"EURIBOR6M":     EURIBOR6MFloat,
	"TIBOR3M":       TIBOR3MFloat,
	"TIBOR6M":       TIBOR6MFloat,
	"ESTR_FIXED":    ESTRFixed,
	"EURIBOR_FIXED": EuriborFixed,
	"SOFR_FIXED":    SOFRFixed,
	"TONAR_FIXED":   TONARFixed,
	"TIBOR_FIXED":   TiborFixed,
}

// LookupLeg resolves a preset leg convention by name, e.g. "EURIBOR6M" or
// "ESTR_FIXED".
func LookupLeg(name string) (LegConvention, error) {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "-", "_")
	lc, ok := legPresets[key]
	if !ok {
		return LegConvention{}, fmt.Errorf("LookupLeg: unknown leg convention %q", name)
	}
	return lc, nil
}
