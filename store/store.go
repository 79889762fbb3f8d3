// Package store persists calibrated curve parameters and their inverse
// Jacobian rows in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/meenmo/curvecal/calibration"
)

// ErrRunNotFound is returned by LoadRun for an unknown run id.
var ErrRunNotFound = errors.New("store: run not found")

// Schema creates the tables used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS calibration_runs (
	run_id      UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	curve_date  DATE NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS calibrated_curves (
	run_id            UUID NOT NULL REFERENCES calibration_runs (run_id) ON DELETE CASCADE,
	curve_name        TEXT NOT NULL,
	position          INTEGER NOT NULL,
	param_offset      INTEGER NOT NULL,
	parameters        DOUBLE PRECISION[] NOT NULL,
	block_size        INTEGER NOT NULL,
	inverse_jacobian  DOUBLE PRECISION[] NOT NULL,
	PRIMARY KEY (run_id, curve_name)
);
`

// Run is a persisted calibration.
type Run struct {
	ID        uuid.UUID
	Name      string
	CurveDate time.Time
	Curves    []CurveRecord
}

// CurveRecord is one calibrated curve. Inverse holds the curve's rows of
// the inverse block Jacobian, row-major with BlockSize columns.
type CurveRecord struct {
	Name       string
	Position   int
	Offset     int
	Parameters []float64
	BlockSize  int
	Inverse    []float64
}

// NewRun flattens a calibration result for storage.
func NewRun(res *calibration.Result, name string, curveDate time.Time) (Run, error) {
	run := Run{ID: res.RunID, Name: name, CurveDate: curveDate}
	for i, e := range res.Layout.Entries() {
		params, err := res.Layout.Slice(res.Parameters, e.Curve)
		if err != nil {
			return Run{}, fmt.Errorf("NewRun: %w", err)
		}
		entry, ok := res.Bundle.Entry(e.Curve)
		if !ok {
			return Run{}, fmt.Errorf("NewRun: %s: %w", e.Curve, calibration.ErrUnknownCurve)
		}
		rows, cols := entry.InverseJacobian.Dims()
		inverse := make([]float64, 0, rows*cols)
		for r := 0; r < rows; r++ {
			inverse = append(inverse, entry.InverseJacobian.RawRowView(r)...)
		}
		run.Curves = append(run.Curves, CurveRecord{
			Name:       e.Curve,
			Position:   i,
			Offset:     e.Offset,
			Parameters: append([]float64(nil), params...),
			BlockSize:  cols,
			Inverse:    inverse,
		})
	}
	return run, nil
}

// PostgresStore saves and loads runs.
type PostgresStore struct {
	db *sql.DB
}

// Open connects with the lib/pq driver.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db), nil
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// EnsureSchema creates missing tables.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun writes a run and its curves in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO calibration_runs (run_id, name, curve_date) VALUES ($1, $2, $3)",
		run.ID.String(), run.Name, run.CurveDate)
	if err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}
	for _, c := range run.Curves {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO calibrated_curves
				(run_id, curve_name, position, param_offset, parameters, block_size, inverse_jacobian)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.ID.String(), c.Name, c.Position, c.Offset, pq.Array(c.Parameters), c.BlockSize, pq.Array(c.Inverse))
		if err != nil {
			return fmt.Errorf("failed to persist curve %s: %w", c.Name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// LoadRun reads a run with its curves in position order.
func (s *PostgresStore) LoadRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := Run{ID: id}
	row := s.db.QueryRowContext(ctx,
		"SELECT name, curve_date FROM calibration_runs WHERE run_id = $1", id.String())
	if err := row.Scan(&run.Name, &run.CurveDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT curve_name, position, param_offset, parameters, block_size, inverse_jacobian
		FROM calibrated_curves WHERE run_id = $1 ORDER BY position`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get curves: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c CurveRecord
		if err := rows.Scan(&c.Name, &c.Position, &c.Offset, pq.Array(&c.Parameters), &c.BlockSize, pq.Array(&c.Inverse)); err != nil {
			return nil, fmt.Errorf("failed to scan curve: %w", err)
		}
		run.Curves = append(run.Curves, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get curves: %w", err)
	}
	return &run, nil
}
