package instrument

import (
	"fmt"
	"slices"
	"time"

	"github.com/meenmo/curvecal/calendar"
	"github.com/meenmo/curvecal/utils"
)

// LegConvention describes the schedule of one swap leg.
type LegConvention struct {
	FrequencyMonths int
	DayCount        string
}

// Builder turns dated market conventions into time-based instruments.
// Payment and fixing dates are Modified Following adjusted on Calendar and
// measured in ACT/365F years from CurveDate.
type Builder struct {
	CurveDate time.Time
	Spot      time.Time
	Calendar  calendar.CalendarID
}

// NewBuilder sets spot spotLag business days after the curve date.
func NewBuilder(curveDate time.Time, cal calendar.CalendarID, spotLag int) *Builder {
	return &Builder{
		CurveDate: curveDate,
		Spot:      calendar.AddBusinessDays(cal, curveDate, spotLag),
		Calendar:  cal,
	}
}

func (b *Builder) time(d time.Time) float64 {
	return utils.TimeFromDate(b.CurveDate, d)
}

// Deposit builds a deposit for tenor. ON starts on the curve date, TN one
// business day later; every other tenor starts at spot.
func (b *Builder) Deposit(tenor string, rate float64, dayCount, curveName string) (Deposit, error) {
	dc, err := utils.ParseDayCount(dayCount)
	if err != nil {
		return Deposit{}, err
	}
	var start, end time.Time
	switch tenor {
	case "ON", "O/N":
		start = b.CurveDate
		end = calendar.AddBusinessDays(b.Calendar, start, 1)
	case "TN", "T/N":
		start = calendar.AddBusinessDays(b.Calendar, b.CurveDate, 1)
		end = calendar.AddBusinessDays(b.Calendar, start, 1)
	default:
		tn, err := ParseTenor(tenor)
		if err != nil {
			return Deposit{}, err
		}
		start = b.Spot
		end = calendar.Adjust(b.Calendar, tn.AddTo(start))
	}
	return Deposit{
		Start:   b.time(start),
		End:     b.time(end),
		Accrual: utils.YearFraction(start, end, dc),
		Rate:    rate,
		Curve:   curveName,
	}, nil
}

// FRA builds a startTenor x endTenor forward rate agreement from spot.
func (b *Builder) FRA(startTenor, endTenor string, rate float64, dayCount, forwardCurve string) (FRA, error) {
	dc, err := utils.ParseDayCount(dayCount)
	if err != nil {
		return FRA{}, err
	}
	st, err := ParseTenor(startTenor)
	if err != nil {
		return FRA{}, err
	}
	et, err := ParseTenor(endTenor)
	if err != nil {
		return FRA{}, err
	}
	start := calendar.Adjust(b.Calendar, st.AddTo(b.Spot))
	end := calendar.Adjust(b.Calendar, et.AddTo(b.Spot))
	if !end.After(start) {
		return FRA{}, fmt.Errorf("Builder.FRA: %s end not after %s start", endTenor, startTenor)
	}
	return FRA{
		Start:        b.time(start),
		End:          b.time(end),
		Accrual:      utils.YearFraction(start, end, dc),
		Rate:         rate,
		ForwardCurve: forwardCurve,
	}, nil
}

// FixedFloatSwap builds a spot-starting fixed/float swap.
func (b *Builder) FixedFloatSwap(tenor string, rate float64, fixed, float LegConvention, discountCurve, forwardCurve string) (FixedFloatSwap, error) {
	fixedDates, err := b.schedule(tenor, fixed.FrequencyMonths)
	if err != nil {
		return FixedFloatSwap{}, err
	}
	floatDates, err := b.schedule(tenor, float.FrequencyMonths)
	if err != nil {
		return FixedFloatSwap{}, err
	}
	fixedDC, err := utils.ParseDayCount(fixed.DayCount)
	if err != nil {
		return FixedFloatSwap{}, err
	}
	floatLeg, err := b.floatCoupons(floatDates, float.DayCount)
	if err != nil {
		return FixedFloatSwap{}, err
	}

	fixedLeg := make([]FixedCoupon, 0, len(fixedDates)-1)
	for i := 1; i < len(fixedDates); i++ {
		fixedLeg = append(fixedLeg, FixedCoupon{
			Payment: b.time(fixedDates[i]),
			Accrual: utils.YearFraction(fixedDates[i-1], fixedDates[i], fixedDC),
		})
	}
	return FixedFloatSwap{
		Fixed:         fixedLeg,
		Float:         floatLeg,
		Rate:          rate,
		DiscountCurve: discountCurve,
		ForwardCurve:  forwardCurve,
	}, nil
}

// BasisSwap builds a spot-starting float/float swap with spread on the
// first leg.
func (b *Builder) BasisSwap(tenor string, spread float64, spreadLeg, otherLeg LegConvention, discountCurve, spreadForwardCurve, otherForwardCurve string) (BasisSwap, error) {
	spreadDates, err := b.schedule(tenor, spreadLeg.FrequencyMonths)
	if err != nil {
		return BasisSwap{}, err
	}
	otherDates, err := b.schedule(tenor, otherLeg.FrequencyMonths)
	if err != nil {
		return BasisSwap{}, err
	}
	leg1, err := b.floatCoupons(spreadDates, spreadLeg.DayCount)
	if err != nil {
		return BasisSwap{}, err
	}
	leg2, err := b.floatCoupons(otherDates, otherLeg.DayCount)
	if err != nil {
		return BasisSwap{}, err
	}
	return BasisSwap{
		SpreadLeg:          leg1,
		OtherLeg:           leg2,
		Spread:             spread,
		DiscountCurve:      discountCurve,
		SpreadForwardCurve: spreadForwardCurve,
		OtherForwardCurve:  otherForwardCurve,
	}, nil
}

func (b *Builder) floatCoupons(dates []time.Time, dayCount string) ([]FloatCoupon, error) {
	dc, err := utils.ParseDayCount(dayCount)
	if err != nil {
		return nil, err
	}
	out := make([]FloatCoupon, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		out = append(out, FloatCoupon{
			Start:   b.time(dates[i-1]),
			End:     b.time(dates[i]),
			Payment: b.time(dates[i]),
			Accrual: utils.YearFraction(dates[i-1], dates[i], dc),
		})
	}
	return out, nil
}

// schedule rolls backward from the unadjusted maturity in steps of
// freqMonths, leaving any short stub at the front. Returned dates start with
// spot and are adjusted.
func (b *Builder) schedule(tenor string, freqMonths int) ([]time.Time, error) {
	tn, err := ParseTenor(tenor)
	if err != nil {
		return nil, err
	}
	months, ok := tn.Months()
	if !ok {
		return nil, fmt.Errorf("Builder.schedule: swap tenor %s must be in months or years", tenor)
	}
	if freqMonths <= 0 {
		return nil, fmt.Errorf("Builder.schedule: invalid frequency %d months", freqMonths)
	}

	end := utils.AddMonth(b.Spot, months)
	unadjusted := []time.Time{end}
	for k := 1; ; k++ {
		d := utils.AddMonth(end, -k*freqMonths)
		if !d.After(b.Spot) {
			break
		}
		unadjusted = append(unadjusted, d)
	}
	slices.Reverse(unadjusted)

	dates := []time.Time{b.Spot}
	for _, d := range unadjusted {
		adj := calendar.Adjust(b.Calendar, d)
		if adj.After(dates[len(dates)-1]) {
			dates = append(dates, adj)
		}
	}
	return dates, nil
}
