// Package metrics records calibration outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for block calibrations.
const (
	ResultOK            = "ok"
	ResultNoConvergence = "no_convergence"
	ResultSingular      = "singular_jacobian"
	ResultConfig        = "config_error"
	ResultCanceled      = "canceled"
	ResultError         = "error"
)

// Recorder holds the calibration metrics. A nil *Recorder is valid and
// records nothing.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Recorder struct {
	blocksTotal     *prometheus.CounterVec
	blockDuration   prometheus.Histogram
	unitsTotal      prometheus.Counter
	unitIterations  prometheus.Histogram
	residualNorm    prometheus.Gauge
	parametersTotal prometheus.Gauge
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calibration_blocks_total",
				Help:      "Block calibrations by result.",
			},
			[]string{"result"},
		),
		blockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calibration_block_duration_seconds",
			Help:      "Wall time of block calibrations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		unitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibration_units_total",
			Help:      "Calibration units solved.",
		}),
		unitIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calibration_unit_iterations",
			Help:      "Root-finder iterations per calibration unit.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		}),
		residualNorm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calibration_last_residual_norm",
			Help:      "Residual infinity-norm of the last solved unit.",
		}),
		parametersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calibration_last_block_parameters",
			Help:      "Number of parameters in the last successful block.",
		}),
	}
	for _, c := range []prometheus.Collector{
		r.blocksTotal, r.blockDuration, r.unitsTotal, r.unitIterations, r.residualNorm, r.parametersTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveUnit records one solved unit.
func (r *Recorder) ObserveUnit(iterations int, residualNorm float64) {
	if r == nil {
		return
	}
	r.unitsTotal.Inc()
	r.unitIterations.Observe(float64(iterations))
	r.residualNorm.Set(residualNorm)
}

// ObserveBlock records a finished block calibration. parameters is only
// recorded for successful blocks.
func (r *Recorder) ObserveBlock(result string, elapsed time.Duration, parameters int) {
	if r == nil {
		return
	}
	r.blocksTotal.WithLabelValues(result).Inc()
	r.blockDuration.Observe(elapsed.Seconds())
	if result == ResultOK {
		r.parametersTotal.Set(float64(parameters))
	}
}
