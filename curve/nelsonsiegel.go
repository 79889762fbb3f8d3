package curve

import (
	"fmt"
	"math"
)

// NelsonSiegel is the parametric curve
//
//	z(t) = b0 + b1·(1-e^{-x})/x + b2·((1-e^{-x})/x - e^{-x}),  x = t/λ
//
// with parameters (b0, b1, b2, λ).
type NelsonSiegel struct {
	name               string
	b0, b1, b2, lambda float64
}

func NewNelsonSiegel(name string, b0, b1, b2, lambda float64) (*NelsonSiegel, error) {
	if !(lambda > 0) {
		return nil, fmt.Errorf("NewNelsonSiegel %s: decay must be positive, got %g", name, lambda)
	}
	return &NelsonSiegel{name: name, b0: b0, b1: b1, b2: b2, lambda: lambda}, nil
}

func (c *NelsonSiegel) Name() string            { return c.name }
func (c *NelsonSiegel) NumberOfParameters() int { return 4 }

// loadings returns the slope and curvature factors and their derivatives in x.
func loadings(x float64) (f1, f2, df1, df2 float64) {
	if x < 1e-8 {
		// Series expansion around zero.
		return 1 - x/2, x / 2, -0.5, 0.5
	}
	e := math.Exp(-x)
	f1 = (1 - e) / x
	f2 = f1 - e
	df1 = e/x - (1-e)/(x*x)
	df2 = df1 + e
	return f1, f2, df1, df2
}

func (c *NelsonSiegel) ZeroRate(t float64) float64 {
	f1, f2, _, _ := loadings(t / c.lambda)
	return c.b0 + c.b1*f1 + c.b2*f2
}

func (c *NelsonSiegel) DiscountFactor(t float64) float64 {
	return discountFactor(c.ZeroRate(t), t)
}

func (c *NelsonSiegel) ZeroRateSensitivity(t float64) []Sensitivity {
	x := t / c.lambda
	f1, f2, df1, df2 := loadings(x)
	dLambda := (c.b1*df1 + c.b2*df2) * (-x / c.lambda)
	return []Sensitivity{{Curve: c.name, Values: []float64{1, f1, f2, dLambda}}}
}
