// Package instrument defines the calibrating instruments. Times are in years
// on the curve time axis; accruals are year fractions under the instrument's
// own day count.
package instrument

// Instrument is a quoted calibrating instrument.
type Instrument interface {
	// Maturity is the last time the instrument depends on. Interpolated
	// generators place their nodes here.
	Maturity() float64
	// Quote is the market quote the instrument is calibrated to.
	Quote() float64
	// Curves lists the curve names the instrument is valued off.
	Curves() []string
}

// Deposit is a simple-interest loan from Start to End quoted at Rate.
type Deposit struct {
	Start, End float64
	Accrual    float64
	Rate       float64
	Curve      string
}

func (d Deposit) Maturity() float64 { return d.End }
func (d Deposit) Quote() float64    { return d.Rate }
func (d Deposit) Curves() []string  { return []string{d.Curve} }

// FRA is a forward rate agreement on the forward curve's index between
// Start and End.
type FRA struct {
	Start, End   float64
	Accrual      float64
	Rate         float64
	ForwardCurve string
}

func (f FRA) Maturity() float64 { return f.End }
func (f FRA) Quote() float64    { return f.Rate }
func (f FRA) Curves() []string  { return []string{f.ForwardCurve} }

// FixedCoupon is one fixed-leg period.
type FixedCoupon struct {
	Payment float64
	Accrual float64
}

// FloatCoupon is one floating-leg period. The index fixes over
// [Start, End] and pays at Payment.
type FloatCoupon struct {
	Start, End float64
	Payment    float64
	Accrual    float64
}

// FixedFloatSwap exchanges a fixed Rate against a floating index. For an
// OIS the forward and discount curves are the same.
type FixedFloatSwap struct {
	Fixed         []FixedCoupon
	Float         []FloatCoupon
	Rate          float64
	DiscountCurve string
	ForwardCurve  string
}

func (s FixedFloatSwap) Maturity() float64 {
	return max(lastFixed(s.Fixed), lastFloat(s.Float))
}
func (s FixedFloatSwap) Quote() float64 { return s.Rate }
func (s FixedFloatSwap) Curves() []string {
	return uniqueNames(s.DiscountCurve, s.ForwardCurve)
}

// BasisSwap exchanges two floating indices; Spread is paid on top of the
// SpreadLeg index.
type BasisSwap struct {
	SpreadLeg          []FloatCoupon
	OtherLeg           []FloatCoupon
	Spread             float64
	DiscountCurve      string
	SpreadForwardCurve string
	OtherForwardCurve  string
}

func (s BasisSwap) Maturity() float64 {
	return max(lastFloat(s.SpreadLeg), lastFloat(s.OtherLeg))
}
func (s BasisSwap) Quote() float64 { return s.Spread }
func (s BasisSwap) Curves() []string {
	return uniqueNames(s.DiscountCurve, s.SpreadForwardCurve, s.OtherForwardCurve)
}

// Maturities returns the maturity of every instrument, in order.
func Maturities(instruments []Instrument) []float64 {
	out := make([]float64, len(instruments))
	for i, inst := range instruments {
		out[i] = inst.Maturity()
	}
	return out
}

func lastFixed(cs []FixedCoupon) float64 {
	m := 0.0
	for _, c := range cs {
		m = max(m, c.Payment)
	}
	return m
}

func lastFloat(cs []FloatCoupon) float64 {
	m := 0.0
	for _, c := range cs {
		m = max(m, c.Payment, c.End)
	}
	return m
}

func uniqueNames(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		dup := false
		for _, o := range out {
			dup = dup || o == n
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out
}
