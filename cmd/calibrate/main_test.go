package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const curveSet = `
name: USD
curve_date: 2025-11-21
calendar: USD
spot_lag: 2
units:
  - curves:
      - name: SOFR
        generator: {type: interpolated, interpolator: log-linear}
        instruments:
          - {type: deposit, tenor: ON, rate: 0.0390, day_count: ACT/360}
          - {type: ois, tenor: 1Y, rate: 0.0372, day_count: ACT/360}
          - {type: ois, tenor: 3Y, rate: 0.0348, day_count: ACT/360}
  - curves:
      - name: TERM3M
        generator: {type: interpolated}
        instruments:
          - {type: deposit, tenor: 3M, rate: 0.0395, day_count: ACT/360}
          - type: irs
            tenor: 2Y
            rate: 0.0371
            discount: SOFR
            fixed: {frequency: 6, day_count: 30/360}
            float: {frequency: 3, day_count: ACT/360}
`

func TestRunCalibratesCurveSet(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := filepath.Join(dir, "usd.yaml")
	require.NoError(t, os.WriteFile(input, []byte(curveSet), 0o600))
	metricsFile := filepath.Join(dir, "calibrate.prom")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-input", input, "-metrics-file", metricsFile}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String()+stderr.String())

	var out Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Empty(t, out.Error)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "USD", out.Name)
	require.Len(t, out.Curves, 2)
	assert.Equal(t, "SOFR", out.Curves[0].Name)
	assert.Equal(t, 0, out.Curves[0].Offset)
	assert.Equal(t, 3, out.Curves[1].Offset)
	for _, c := range out.Curves {
		for _, r := range c.Residuals {
			assert.InDelta(t, 0, r, 1e-10, c.Name)
		}
	}
	require.Len(t, out.Units, 2)
	assert.Equal(t, []string{"TERM3M"}, out.Units[1].Curves)
	assert.False(t, out.Stored)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `curvecal_calibration_blocks_total{result="ok"} 1`)
	assert.Contains(t, stderr.String(), "block calibrated")
}

func TestRunReadsStdin(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(curveSet), &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String())
	assert.Contains(t, stdout.String(), `"name":"SOFR"`)
}

func TestRunReportsErrorsAsJSON(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string]string{
		"invalid yaml":    "units: [",
		"unknown curve":   strings.ReplaceAll(curveSet, "discount: SOFR", "discount: ESTR"),
		"bad instrument":  strings.ReplaceAll(curveSet, "type: irs", "type: cds"),
		"empty curve set": "",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), nil, strings.NewReader(doc), &stdout, &stderr)
			assert.Equal(t, 1, code)

			var out Output
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
			assert.NotEmpty(t, out.Error)
			assert.Empty(t, out.Curves)
		})
	}
}

func TestRunConfigFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CURVECAL_SOLVER_ROOT_FINDER", "bisection")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(curveSet), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "root_finder")
}

func TestRunFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"-h"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"-bogus"}, strings.NewReader(""), &stdout, &stderr))
}

func TestWriteOutputRejectsNonFiniteValues(t *testing.T) {
	var stdout bytes.Buffer
	code := writeOutput(&stdout, &Output{
		Name:   "USD",
		Curves: []CurveOutput{{Name: "SOFR", Parameters: []float64{0.03}, Residuals: []float64{math.NaN()}}},
	})
	assert.Equal(t, 1, code)

	var out Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out.Error, "failed to encode output")
	assert.Empty(t, out.Curves)
}

func TestWriteOutputSucceeds(t *testing.T) {
	var stdout bytes.Buffer
	code := writeOutput(&stdout, &Output{Name: "USD", Curves: []CurveOutput{{Name: "SOFR", Parameters: []float64{0.03}}}})
	assert.Equal(t, 0, code)

	var out Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "USD", out.Name)
	assert.Empty(t, out.Error)
}
