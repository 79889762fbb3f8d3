package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/meenmo/curvecal/calibration"
	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/curveset"
	"github.com/meenmo/curvecal/logging"
	"github.com/meenmo/curvecal/metrics"
	"github.com/meenmo/curvecal/multicurve"
	"github.com/meenmo/curvecal/pricing"
	"github.com/meenmo/curvecal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CurveOutput is one calibrated curve.
type CurveOutput struct {
	Name       string    `json:"name"`
	Offset     int       `json:"offset"`
	Parameters []float64 `json:"parameters"`
	Residuals  []float64 `json:"residuals"`
}

// UnitOutput summarizes the root search of one unit.
type UnitOutput struct {
	Curves       []string `json:"curves"`
	Start        int      `json:"start"`
	Iterations   int      `json:"iterations"`
	ResidualNorm float64  `json:"residual_norm"`
}

// Output is written to stdout as JSON.
type Output struct {
	RunID     string        `json:"run_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	CurveDate string        `json:"curve_date,omitempty"`
	Curves    []CurveOutput `json:"curves,omitempty"`
	Units     []UnitOutput  `json:"units,omitempty"`
	Stored    bool          `json:"stored,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "YAML curve set path (optional; reads stdin when empty)")
	configPath := fs.String("config", "", "config file path (optional; defaults to ./curvecal.yaml)")
	metricsFile := fs.String("metrics-file", "", "write Prometheus metrics in text format to this path")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return writeError(stdout, fmt.Errorf("failed to load config: %w", err))
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return writeError(stdout, fmt.Errorf("failed to create logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	def, err := readDefinition(*inputPath, stdin)
	if err != nil {
		return writeError(stdout, err)
	}
	units, err := def.BuildUnits()
	if err != nil {
		return writeError(stdout, err)
	}

	opts := []calibration.Option{calibration.WithLogger(logger)}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled || *metricsFile != "" {
		reg = prometheus.NewRegistry()
		rec, err := metrics.NewRecorder(cfg.Metrics.Namespace, reg)
		if err != nil {
			return writeError(stdout, err)
		}
		opts = append(opts, calibration.WithMetrics(rec))
	}
	engine, err := calibration.NewEngine(cfg.Solver, opts...)
	if err != nil {
		return writeError(stdout, err)
	}

	calc := pricing.ParSpreadCalculator{}
	res, calErr := engine.Calibrate(ctx, units, multicurve.Environment{}, calc, pricing.ParSpreadSensitivityCalculator{})
	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			logger.Warn("failed to write metrics file", zap.String("path", *metricsFile), zap.Error(err))
		}
	}
	if calErr != nil {
		return writeError(stdout, calErr)
	}

	out, err := buildOutput(def, units, res, calc)
	if err != nil {
		return writeError(stdout, err)
	}
	if cfg.Store.DSN != "" {
		if err := persist(ctx, cfg.Store.DSN, def, res); err != nil {
			return writeError(stdout, err)
		}
		out.Stored = true
		logger.Info("calibration stored", zap.String("run_id", out.RunID))
	}

	return writeOutput(stdout, out)
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  calibrate < curveset.yaml")
	fmt.Fprintln(w, "  calibrate -input /path/to/curveset.yaml [-config curvecal.yaml] [-metrics-file calibrate.prom]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Calibrate the curves of a YAML curve set and print parameters as JSON.")
	fmt.Fprintln(w, "Results are stored in Postgres when store.dsn (CURVECAL_STORE_DSN) is set.")
	fmt.Fprintln(w)
	fs.PrintDefaults()
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (*zap.Logger, error) {
	if strings.EqualFold(cfg.Output, "stderr") {
		return logging.NewWithWriter(cfg, zapcore.AddSync(stderr))
	}
	return logging.New(cfg)
}

func readDefinition(path string, stdin io.Reader) (*curveset.Definition, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return curveset.Load(stdin)
	}
	return curveset.LoadFile(path)
}

func buildOutput(def *curveset.Definition, units []calibration.Unit, res *calibration.Result, calc pricing.ParSpreadCalculator) (*Output, error) {
	out := &Output{RunID: res.RunID.String(), Name: def.Name, CurveDate: def.CurveDate}
	for _, u := range units {
		for _, c := range u.Curves {
			entry, ok := res.Layout.Entry(c.Name)
			if !ok {
				return nil, fmt.Errorf("curve %s: %w", c.Name, calibration.ErrUnknownCurve)
			}
			params, err := res.Layout.Slice(res.Parameters, c.Name)
			if err != nil {
				return nil, err
			}
			residuals := make([]float64, len(c.Instruments))
			for i, inst := range c.Instruments {
				if residuals[i], err = calc.Value(inst, res.Environment); err != nil {
					return nil, fmt.Errorf("curve %s instrument %d: %w", c.Name, i, err)
				}
			}
			out.Curves = append(out.Curves, CurveOutput{Name: c.Name, Offset: entry.Offset, Parameters: params, Residuals: residuals})
		}
	}
	for _, r := range res.Units {
		out.Units = append(out.Units, UnitOutput{Curves: r.Curves, Start: r.Start, Iterations: r.Iterations, ResidualNorm: r.ResidualNorm})
	}
	return out, nil
}

func persist(ctx context.Context, dsn string, def *curveset.Definition, res *calibration.Result) error {
	date, err := def.Date()
	if err != nil {
		return err
	}
	run, err := store.NewRun(res, def.Name, date)
	if err != nil {
		return err
	}
	s, err := store.Open(dsn)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.SaveRun(ctx, run)
}

// writeOutput prints out as one JSON line. Values JSON cannot carry, such
// as NaN residuals, turn the run into a failure.
func writeOutput(w io.Writer, out *Output) int {
	outputBytes, err := json.Marshal(out)
	if err != nil {
		return writeError(w, fmt.Errorf("failed to encode output: %w", err))
	}
	fmt.Fprintln(w, string(outputBytes))
	return 0
}

func writeError(w io.Writer, err error) int {
	outputBytes, merr := json.Marshal(Output{Error: err.Error()})
	if merr != nil {
		outputBytes = []byte(`{"error":"failed to encode error"}`)
	}
	fmt.Fprintln(w, string(outputBytes))
	return 1
}
