// Package curveset reads calibration set-ups from YAML.
//
// A curve set names a curve date, a holiday calendar and an ordered list of
// calibration units. Each unit lists its curves with a generator recipe and
// the dated market instruments that calibrate the curve:
//
//	curve_date: 2025-11-21
//	calendar: TARGET
//	spot_lag: 2
//	units:
//	  - curves:
//	      - name: ESTR
//	        generator: {type: interpolated, interpolator: log-linear}
//	        instruments:
//	          - {type: deposit, tenor: ON, rate: 0.0193, day_count: ACT/360}
//	          - {type: ois, tenor: 1Y, rate: 0.0195, day_count: ACT/360}
package curveset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/meenmo/curvecal/calendar"
	"github.com/meenmo/curvecal/calibration"
	"github.com/meenmo/curvecal/curve"
	"github.com/meenmo/curvecal/generator"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/utils"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition marks a curve set that cannot be turned into units.
var ErrInvalidDefinition = errors.New("curveset: invalid definition")

// DefaultGuess seeds every rate-like parameter without an explicit guess.
const DefaultGuess = 0.01

// Definition is a complete curve set.
type Definition struct {
	Name      string     `yaml:"name,omitempty"`
	CurveDate string     `yaml:"curve_date"`
	Calendar  string     `yaml:"calendar,omitempty"`
	SpotLag   int        `yaml:"spot_lag,omitempty"`
	Units     []UnitSpec `yaml:"units"`
}

// UnitSpec is one simultaneously solved group of curves.
type UnitSpec struct {
	Curves []CurveSpec `yaml:"curves"`
}

// CurveSpec describes one curve. Guess is optional; when present it must
// match the generator's parameter count after finalization.
type CurveSpec struct {
	Name        string           `yaml:"name"`
	Generator   GeneratorSpec    `yaml:"generator"`
	Instruments []InstrumentSpec `yaml:"instruments"`
	Guess       []float64        `yaml:"guess,omitempty"`
}

// GeneratorSpec selects a generator. Type is one of constant, interpolated,
// anchor, nelson-siegel, additive or spread.
type GeneratorSpec struct {
	Type         string          `yaml:"type"`
	Interpolator string          `yaml:"interpolator,omitempty"`
	Anchor       float64         `yaml:"anchor,omitempty"`
	Base         string          `yaml:"base,omitempty"`
	Spread       *GeneratorSpec  `yaml:"spread,omitempty"`
	Parts        []GeneratorSpec `yaml:"parts,omitempty"`
}

// LegSpec is the schedule of one swap leg. Convention names a preset such
// as EURIBOR6M or ESTR_FIXED; Frequency (months) and DayCount override it.
type LegSpec struct {
	Convention string `yaml:"convention,omitempty"`
	Frequency  int    `yaml:"frequency,omitempty"`
	DayCount   string `yaml:"day_count,omitempty"`
}

// InstrumentSpec is a quoted market instrument. Type is one of deposit,
// fra, ois, irs or basis. Curve references default to the owning curve
// where the instrument type allows it.
type InstrumentSpec struct {
	Type     string  `yaml:"type"`
	Tenor    string  `yaml:"tenor"`
	Start    string  `yaml:"start,omitempty"`
	Rate     float64 `yaml:"rate"`
	DayCount string  `yaml:"day_count,omitempty"`
	Fixed    LegSpec `yaml:"fixed,omitempty"`
	Float    LegSpec `yaml:"float,omitempty"`
	Other    LegSpec `yaml:"other,omitempty"`

	Discount     string `yaml:"discount,omitempty"`
	Forward      string `yaml:"forward,omitempty"`
	OtherForward string `yaml:"other_forward,omitempty"`
}

// Load decodes a curve set. Unknown keys are rejected.
func Load(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if len(def.Units) == 0 {
		return nil, fmt.Errorf("%w: no units", ErrInvalidDefinition)
	}
	return &def, nil
}

// LoadFile reads a curve set from path.
func LoadFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("curveset.LoadFile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Date parses the curve date.
func (d *Definition) Date() (time.Time, error) {
	t, err := utils.ParseDate(d.CurveDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: curve_date: %v", ErrInvalidDefinition, err)
	}
	return t, nil
}

// BuildUnits builds the calibration units. Instruments are dated from the curve
// date and converted to curve time; curves without a guess start from
// DefaultGuess.
func (d *Definition) BuildUnits() ([]calibration.Unit, error) {
	date, err := d.Date()
	if err != nil {
		return nil, err
	}
	cal, err := calendar.Parse(d.Calendar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	b := instrument.NewBuilder(date, cal, d.SpotLag)

	units := make([]calibration.Unit, 0, len(d.Units))
	for k, u := range d.Units {
		var unit calibration.Unit
		for _, c := range u.Curves {
			spec, guess, err := c.build(b)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", k, err)
			}
			unit.Curves = append(unit.Curves, spec)
			unit.InitialGuess = append(unit.InitialGuess, guess...)
		}
		units = append(units, unit)
	}
	return units, nil
}

func (c CurveSpec) build(b *instrument.Builder) (calibration.CurveSpec, []float64, error) {
	if c.Name == "" {
		return calibration.CurveSpec{}, nil, fmt.Errorf("%w: curve without name", ErrInvalidDefinition)
	}
	gen, err := c.Generator.build()
	if err != nil {
		return calibration.CurveSpec{}, nil, fmt.Errorf("curve %s: %w", c.Name, err)
	}
	insts := make([]instrument.Instrument, 0, len(c.Instruments))
	for i, is := range c.Instruments {
		inst, err := is.build(b, c.Name)
		if err != nil {
			return calibration.CurveSpec{}, nil, fmt.Errorf("curve %s instrument %d: %w", c.Name, i, err)
		}
		insts = append(insts, inst)
	}

	finalized := gen.Finalize(insts)
	guess := c.Guess
	if guess == nil {
		guess = defaultGuess(finalized)
	}
	if len(guess) != finalized.NumberOfParameters() {
		return calibration.CurveSpec{}, nil, fmt.Errorf("%w: curve %s: guess has %d values, generator needs %d",
			ErrInvalidDefinition, c.Name, len(guess), finalized.NumberOfParameters())
	}
	return calibration.CurveSpec{Name: c.Name, Generator: gen, Instruments: insts}, guess, nil
}

func defaultGuess(g generator.Generator) []float64 {
	switch v := g.(type) {
	case generator.NelsonSiegel:
		return []float64{DefaultGuess, 0, 0, 1}
	case generator.Additive:
		var out []float64
		for _, p := range v.Parts {
			out = append(out, defaultGuess(p)...)
		}
		return out
	case generator.SpreadOverExisting:
		return make([]float64, v.NumberOfParameters())
	case generator.InterpolatedAnchor:
		return make([]float64, v.NumberOfParameters())
	}
	out := make([]float64, g.NumberOfParameters())
	for i := range out {
		out[i] = DefaultGuess
	}
	return out
}

func (g GeneratorSpec) build() (generator.Generator, error) {
	switch strings.ToLower(g.Type) {
	case "constant", "flat":
		return generator.Constant{}, nil
	case "", "interpolated":
		interp, err := curve.ParseInterpolator(g.Interpolator)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		return generator.Interpolated{Interpolator: interp}, nil
	case "anchor", "interpolated-anchor":
		interp, err := curve.ParseInterpolator(g.Interpolator)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		return generator.InterpolatedAnchor{Interpolator: interp, Anchor: g.Anchor}, nil
	case "nelson-siegel", "ns":
		return generator.NelsonSiegel{}, nil
	case "additive":
		if len(g.Parts) == 0 {
			return nil, fmt.Errorf("%w: additive generator without parts", ErrInvalidDefinition)
		}
		parts := make([]generator.Generator, len(g.Parts))
		for i, p := range g.Parts {
			gen, err := p.build()
			if err != nil {
				return nil, err
			}
			parts[i] = gen
		}
		return generator.Additive{Parts: parts}, nil
	case "spread":
		if g.Base == "" || g.Spread == nil {
			return nil, fmt.Errorf("%w: spread generator needs base and spread", ErrInvalidDefinition)
		}
		spread, err := g.Spread.build()
		if err != nil {
			return nil, err
		}
		return generator.SpreadOverExisting{Base: g.Base, Spread: spread}, nil
	default:
		return nil, fmt.Errorf("%w: unknown generator type %q", ErrInvalidDefinition, g.Type)
	}
}

func (l LegSpec) convention(defaultDayCount string) (instrument.LegConvention, error) {
	var lc instrument.LegConvention
	if l.Convention != "" {
		preset, err := instrument.LookupLeg(l.Convention)
		if err != nil {
			return lc, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		lc = preset
	}
	if l.Frequency != 0 {
		lc.FrequencyMonths = l.Frequency
	}
	if l.DayCount != "" {
		lc.DayCount = l.DayCount
	}
	if lc.FrequencyMonths == 0 {
		lc.FrequencyMonths = 12
	}
	if lc.DayCount == "" {
		lc.DayCount = defaultDayCount
	}
	return lc, nil
}

func (s InstrumentSpec) build(b *instrument.Builder, owner string) (instrument.Instrument, error) {
	or := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	var (
		inst instrument.Instrument
		err  error
	)
	switch strings.ToLower(s.Type) {
	case "deposit", "depo":
		inst, err = b.Deposit(s.Tenor, s.Rate, s.DayCount, or(s.Forward, owner))
	case "fra":
		if s.Start == "" {
			return nil, fmt.Errorf("%w: fra without start tenor", ErrInvalidDefinition)
		}
		inst, err = b.FRA(s.Start, s.Tenor, s.Rate, s.DayCount, or(s.Forward, owner))
	case "ois":
		var fixed, float instrument.LegConvention
		if fixed, err = s.Fixed.convention(s.DayCount); err != nil {
			return nil, err
		}
		if float, err = s.Float.convention(s.DayCount); err != nil {
			return nil, err
		}
		if s.Float.Frequency == 0 && s.Float.Convention == "" {
			float.FrequencyMonths = fixed.FrequencyMonths
		}
		inst, err = b.FixedFloatSwap(s.Tenor, s.Rate, fixed, float, or(s.Discount, owner), or(s.Forward, owner))
	case "irs", "swap":
		if s.Discount == "" {
			return nil, fmt.Errorf("%w: irs needs a discount curve", ErrInvalidDefinition)
		}
		var fixed, float instrument.LegConvention
		if fixed, err = s.Fixed.convention(s.DayCount); err != nil {
			return nil, err
		}
		if float, err = s.Float.convention(s.DayCount); err != nil {
			return nil, err
		}
		inst, err = b.FixedFloatSwap(s.Tenor, s.Rate, fixed, float, s.Discount, or(s.Forward, owner))
	case "basis":
		if s.Discount == "" || s.OtherForward == "" {
			return nil, fmt.Errorf("%w: basis swap needs discount and other_forward curves", ErrInvalidDefinition)
		}
		var spreadLeg, otherLeg instrument.LegConvention
		if spreadLeg, err = s.Float.convention(s.DayCount); err != nil {
			return nil, err
		}
		if otherLeg, err = s.Other.convention(s.DayCount); err != nil {
			return nil, err
		}
		inst, err = b.BasisSwap(s.Tenor, s.Rate, spreadLeg, otherLeg, s.Discount, or(s.Forward, owner), s.OtherForward)
	default:
		return nil, fmt.Errorf("%w: unknown instrument type %q", ErrInvalidDefinition, s.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrInvalidDefinition, s.Type, s.Tenor, err)
	}
	return inst, nil
}
