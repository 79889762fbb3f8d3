package curve

// Additive sums the zero rates of its parts. Its parameters are the
// concatenation of the parts' own parameters, in part order. Entries the
// parts attribute to other curves are passed through.
type Additive struct {
	name  string
	parts []Curve
	n     int
}

func NewAdditive(name string, parts ...Curve) *Additive {
	n := 0
	for _, p := range parts {
		n += p.NumberOfParameters()
	}
	return &Additive{name: name, parts: parts, n: n}
}

func (c *Additive) Name() string            { return c.name }
func (c *Additive) NumberOfParameters() int { return c.n }

func (c *Additive) ZeroRate(t float64) float64 {
	z := 0.0
	for _, p := range c.parts {
		z += p.ZeroRate(t)
	}
	return z
}

func (c *Additive) DiscountFactor(t float64) float64 {
	return discountFactor(c.ZeroRate(t), t)
}

func (c *Additive) ZeroRateSensitivity(t float64) []Sensitivity {
	own := make([]float64, 0, c.n)
	var others []Sensitivity
	for _, p := range c.parts {
		s := p.ZeroRateSensitivity(t)
		own = append(own, s[0].Values...)
		others = append(others, s[1:]...)
	}
	return append([]Sensitivity{{Curve: c.name, Values: own}}, MergeSensitivities(others)...)
}

// Spread is a curve defined as an existing base curve plus a spread curve.
// Only the spread parameters belong to it; the base curve's sensitivities
// are reported under the base curve's own name.
type Spread struct {
	name   string
	base   Curve
	spread Curve
}

func NewSpread(name string, base, spread Curve) *Spread {
	return &Spread{name: name, base: base, spread: spread}
}

func (c *Spread) Name() string            { return c.name }
func (c *Spread) NumberOfParameters() int { return c.spread.NumberOfParameters() }

// Base returns the curve the spread is applied over.
func (c *Spread) Base() Curve { return c.base }

func (c *Spread) ZeroRate(t float64) float64 {
	return c.base.ZeroRate(t) + c.spread.ZeroRate(t)
}

func (c *Spread) DiscountFactor(t float64) float64 {
	return discountFactor(c.ZeroRate(t), t)
}

func (c *Spread) ZeroRateSensitivity(t float64) []Sensitivity {
	s := c.spread.ZeroRateSensitivity(t)
	out := []Sensitivity{{Curve: c.name, Values: s[0].Values}}
	out = append(out, s[1:]...)
	out = append(out, c.base.ZeroRateSensitivity(t)...)
	return MergeSensitivities(out)
}
