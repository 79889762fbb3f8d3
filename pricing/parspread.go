// Package pricing values calibrating instruments as par spreads: the
// difference between the rate implied by the curves and the quoted rate.
// A calibrated environment reprices every instrument to zero.
package pricing

import (
	"errors"
	"fmt"

	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/multicurve"
)

var (
	// ErrUnsupportedInstrument is returned for instrument types this package
	// cannot value.
	ErrUnsupportedInstrument = errors.New("unsupported instrument")
	// ErrZeroAnnuity is returned for swaps whose annuity leg is empty.
	ErrZeroAnnuity = errors.New("zero annuity")
)

// dfBar is the derivative of the par spread with respect to one discount
// factor lookup.
type dfBar struct {
	curve string
	t     float64
	bar   float64
}

// evaluation is a par spread plus the discount-factor adjoints needed for
// its parameter sensitivity.
type evaluation struct {
	value float64
	bars  []dfBar
}

type dfSource struct {
	env multicurve.Environment
	err error
}

func (s *dfSource) df(name string, t float64) float64 {
	if s.err != nil {
		return 1
	}
	v, err := s.env.DiscountFactor(name, t)
	if err != nil {
		s.err = err
		return 1
	}
	return v
}

func evaluate(inst instrument.Instrument, env multicurve.Environment) (evaluation, error) {
	src := &dfSource{env: env}
	var ev evaluation
	switch v := inst.(type) {
	case instrument.Deposit:
		ev = simpleRate(src, v.Curve, v.Start, v.End, v.Accrual, v.Rate)
	case *instrument.Deposit:
		ev = simpleRate(src, v.Curve, v.Start, v.End, v.Accrual, v.Rate)
	case instrument.FRA:
		ev = simpleRate(src, v.ForwardCurve, v.Start, v.End, v.Accrual, v.Rate)
	case *instrument.FRA:
		ev = simpleRate(src, v.ForwardCurve, v.Start, v.End, v.Accrual, v.Rate)
	case instrument.FixedFloatSwap:
		ev = fixedFloat(src, &v)
	case *instrument.FixedFloatSwap:
		ev = fixedFloat(src, v)
	case instrument.BasisSwap:
		ev = basis(src, &v)
	case *instrument.BasisSwap:
		ev = basis(src, v)
	default:
		return evaluation{}, fmt.Errorf("pricing: %T: %w", inst, ErrUnsupportedInstrument)
	}
	if src.err != nil {
		return evaluation{}, src.err
	}
	return ev, nil
}

// simpleRate values (P(s)/P(e) - 1)/accrual - quote.
func simpleRate(src *dfSource, name string, start, end, accrual, quote float64) evaluation {
	ps := src.df(name, start)
	pe := src.df(name, end)
	return evaluation{
		value: (ps/pe-1)/accrual - quote,
		bars: []dfBar{
			{curve: name, t: start, bar: 1 / (accrual * pe)},
			{curve: name, t: end, bar: -ps / (accrual * pe * pe)},
		},
	}
}

// floatLeg accumulates sum D(pay)·(P(s)/P(e) - 1) over the coupons.
func floatLeg(src *dfSource, coupons []instrument.FloatCoupon, discount, forward string) (pv float64, terms []floatTerm) {
	terms = make([]floatTerm, len(coupons))
	for j, c := range coupons {
		d := src.df(discount, c.Payment)
		ps := src.df(forward, c.Start)
		pe := src.df(forward, c.End)
		fwd := ps/pe - 1
		pv += d * fwd
		terms[j] = floatTerm{coupon: c, d: d, ps: ps, pe: pe, fwd: fwd}
	}
	return pv, terms
}

type floatTerm struct {
	coupon    instrument.FloatCoupon
	d, ps, pe float64
	fwd       float64
}

func (ft floatTerm) bars(discount, forward string, scale float64) []dfBar {
	return []dfBar{
		{curve: discount, t: ft.coupon.Payment, bar: scale * ft.fwd},
		{curve: forward, t: ft.coupon.Start, bar: scale * ft.d / ft.pe},
		{curve: forward, t: ft.coupon.End, bar: -scale * ft.d * ft.ps / (ft.pe * ft.pe)},
	}
}

// fixedFloat values float PV / annuity - rate.
func fixedFloat(src *dfSource, s *instrument.FixedFloatSwap) evaluation {
	annuity := 0.0
	fixedDF := make([]float64, len(s.Fixed))
	for i, c := range s.Fixed {
		fixedDF[i] = src.df(s.DiscountCurve, c.Payment)
		annuity += c.Accrual * fixedDF[i]
	}
	pv, terms := floatLeg(src, s.Float, s.DiscountCurve, s.ForwardCurve)
	if annuity == 0 && src.err == nil {
		src.err = fmt.Errorf("pricing: fixed/float swap: %w", ErrZeroAnnuity)
	}
	if src.err != nil {
		return evaluation{}
	}
	par := pv / annuity

	bars := make([]dfBar, 0, 3*len(terms)+len(s.Fixed))
	for _, ft := range terms {
		bars = append(bars, ft.bars(s.DiscountCurve, s.ForwardCurve, 1/annuity)...)
	}
	for _, c := range s.Fixed {
		bars = append(bars, dfBar{curve: s.DiscountCurve, t: c.Payment, bar: -par * c.Accrual / annuity})
	}
	return evaluation{value: par - s.Rate, bars: bars}
}

// basis values (PV(other) - PV(spread leg)) / spread-leg annuity - spread.
func basis(src *dfSource, s *instrument.BasisSwap) evaluation {
	annuity := 0.0
	for _, c := range s.SpreadLeg {
		annuity += c.Accrual * src.df(s.DiscountCurve, c.Payment)
	}
	pv1, terms1 := floatLeg(src, s.SpreadLeg, s.DiscountCurve, s.SpreadForwardCurve)
	pv2, terms2 := floatLeg(src, s.OtherLeg, s.DiscountCurve, s.OtherForwardCurve)
	if annuity == 0 && src.err == nil {
		src.err = fmt.Errorf("pricing: basis swap: %w", ErrZeroAnnuity)
	}
	if src.err != nil {
		return evaluation{}
	}
	par := (pv2 - pv1) / annuity

	bars := make([]dfBar, 0, 3*(len(terms1)+len(terms2))+len(s.SpreadLeg))
	for _, ft := range terms2 {
		bars = append(bars, ft.bars(s.DiscountCurve, s.OtherForwardCurve, 1/annuity)...)
	}
	for _, ft := range terms1 {
		bars = append(bars, ft.bars(s.DiscountCurve, s.SpreadForwardCurve, -1/annuity)...)
	}
	for _, c := range s.SpreadLeg {
		bars = append(bars, dfBar{curve: s.DiscountCurve, t: c.Payment, bar: -par * c.Accrual / annuity})
	}
	return evaluation{value: par - s.Spread, bars: bars}
}
