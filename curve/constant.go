package curve

// Constant is a flat zero-rate curve with a single parameter.
type Constant struct {
	name string
	rate float64
}

func NewConstant(name string, rate float64) *Constant {
	return &Constant{name: name, rate: rate}
}

func (c *Constant) Name() string                     { return c.name }
func (c *Constant) ZeroRate(float64) float64         { return c.rate }
func (c *Constant) DiscountFactor(t float64) float64 { return discountFactor(c.rate, t) }
func (c *Constant) NumberOfParameters() int          { return 1 }

func (c *Constant) ZeroRateSensitivity(float64) []Sensitivity {
	return []Sensitivity{{Curve: c.name, Values: []float64{1}}}
}
