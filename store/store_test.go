package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/meenmo/curvecal/calibration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func twoCurveResult(t *testing.T) *calibration.Result {
	t.Helper()
	layout, err := calibration.ParameterLayout{}.Append("DSC", 2)
	require.NoError(t, err)
	dscBlock := calibration.NewCurveBuildingBlock(layout)
	layout, err = layout.Append("FWD", 1)
	require.NoError(t, err)

	bundle := calibration.NewBlockBundle()
	bundle.Add("DSC", dscBlock, mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	bundle.Add("FWD", calibration.NewCurveBuildingBlock(layout), mat.NewDense(1, 3, []float64{5, 6, 7}))
	return &calibration.Result{
		RunID:      uuid.New(),
		Bundle:     bundle,
		Layout:     layout,
		Parameters: []float64{0.03, 0.032, 0.035},
	}
}

func TestNewRun(t *testing.T) {
	res := twoCurveResult(t)
	date := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)

	run, err := NewRun(res, "EUR", date)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, run.ID)
	require.Len(t, run.Curves, 2)
	assert.Equal(t, CurveRecord{Name: "DSC", Position: 0, Offset: 0, Parameters: []float64{0.03, 0.032}, BlockSize: 2, Inverse: []float64{1, 2, 3, 4}}, run.Curves[0])
	assert.Equal(t, CurveRecord{Name: "FWD", Position: 1, Offset: 2, Parameters: []float64{0.035}, BlockSize: 3, Inverse: []float64{5, 6, 7}}, run.Curves[1])

	// Stored parameters must not alias the result.
	run.Curves[0].Parameters[0] = 1
	assert.Equal(t, 0.03, res.Parameters[0])
}

func TestNewRunMissingBundleEntry(t *testing.T) {
	res := twoCurveResult(t)
	res.Bundle = calibration.NewBlockBundle()
	_, err := NewRun(res, "EUR", time.Now())
	require.ErrorIs(t, err, calibration.ErrUnknownCurve)
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS calibration_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	t.Run("writes run and curves in one transaction", func(t *testing.T) {
		s, mock := newMockStore(t)
		date := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)
		run, err := NewRun(twoCurveResult(t), "EUR", date)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibration_runs")).
			WithArgs(run.ID.String(), "EUR", date).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibrated_curves")).
			WithArgs(run.ID.String(), "DSC", 0, 0, sqlmock.AnyArg(), 2, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibrated_curves")).
			WithArgs(run.ID.String(), "FWD", 1, 2, sqlmock.AnyArg(), 3, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.SaveRun(context.Background(), run))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		s, mock := newMockStore(t)
		run, err := NewRun(twoCurveResult(t), "EUR", time.Now())
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibration_runs")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibrated_curves")).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err = s.SaveRun(context.Background(), run)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DSC")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoadRun(t *testing.T) {
	t.Run("reads curves in position order", func(t *testing.T) {
		s, mock := newMockStore(t)
		id := uuid.New()
		date := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, curve_date FROM calibration_runs WHERE run_id = $1")).
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"name", "curve_date"}).AddRow("EUR", date))
		mock.ExpectQuery(regexp.QuoteMeta("FROM calibrated_curves WHERE run_id = $1 ORDER BY position")).
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"curve_name", "position", "param_offset", "parameters", "block_size", "inverse_jacobian"}).
				AddRow("DSC", 0, 0, "{0.03,0.032}", 2, "{1,2,3,4}").
				AddRow("FWD", 1, 2, "{0.035}", 3, "{5,6,7}"))

		run, err := s.LoadRun(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "EUR", run.Name)
		assert.Equal(t, date, run.CurveDate)
		require.Len(t, run.Curves, 2)
		assert.Equal(t, []float64{0.03, 0.032}, run.Curves[0].Parameters)
		assert.Equal(t, []float64{5, 6, 7}, run.Curves[1].Inverse)
		assert.Equal(t, 2, run.Curves[1].Offset)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown run", func(t *testing.T) {
		s, mock := newMockStore(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("FROM calibration_runs")).
			WithArgs(id.String()).
			WillReturnError(sql.ErrNoRows)

		_, err := s.LoadRun(context.Background(), id)
		require.ErrorIs(t, err, ErrRunNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
