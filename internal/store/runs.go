package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/remapcheck/internal/canon"
)

// Run is one recorded verification.
//
// RelativeError and Tolerance hold exact decimal strings (canon.Float).
// RelativeError is empty when the verification failed with ErrorKind set.
type Run struct {
	ID            string `json:"id"`
	BatchToken    string `json:"batch_token"`
	Seq           int64  `json:"seq"`
	Scenario      string `json:"scenario"`
	Resolution    string `json:"resolution,omitempty"`
	WeightsPath   string `json:"weights_path"`
	SrcPath       string `json:"src_path"`
	DestPath      string `json:"dest_path"`
	RelativeError string `json:"relative_error,omitempty"`
	Tolerance     string `json:"tolerance"`
	Outcome       string `json:"outcome"`
	ErrorKind     string `json:"error_kind,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	NNZ           int64  `json:"nnz"`
}

// RunID computes the content-addressed ID of r. The ID field itself is
// ignored.
func RunID(r Run) (string, error) {
	return canon.Fingerprint(canon.DomainRun, map[string]any{
		"batch_token":    r.BatchToken,
		"seq":            r.Seq,
		"scenario":       r.Scenario,
		"resolution":     r.Resolution,
		"weights_path":   r.WeightsPath,
		"src_path":       r.SrcPath,
		"dest_path":      r.DestPath,
		"relative_error": r.RelativeError,
		"tolerance":      r.Tolerance,
		"outcome":        r.Outcome,
		"error_kind":     r.ErrorKind,
		"error_message":  r.ErrorMessage,
		"nnz":            r.NNZ,
	})
}

// WriteRun inserts r, filling in its ID when empty, and returns the stored
// ID. Duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		id, err := RunID(r)
		if err != nil {
			return "", fmt.Errorf("write run: %w", err)
		}
		r.ID = id
	}
	if r.Scenario == "" {
		return "", fmt.Errorf("write run: scenario is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, batch_token, seq, scenario, resolution, weights_path, src_path, dest_path,
		 relative_error, tolerance, outcome, error_kind, error_message, nnz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.BatchToken,
		r.Seq,
		r.Scenario,
		r.Resolution,
		r.WeightsPath,
		r.SrcPath,
		r.DestPath,
		r.RelativeError,
		r.Tolerance,
		r.Outcome,
		r.ErrorKind,
		r.ErrorMessage,
		r.NNZ,
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	return r.ID, nil
}

const runColumns = `id, batch_token, seq, scenario, resolution, weights_path, src_path, dest_path,
	relative_error, tolerance, outcome, error_kind, error_message, nnz`

// ReadRuns returns every run ordered by seq ASC, id ASC.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ReadRunsByScenario returns the runs recorded for one scenario.
func (s *Store) ReadRunsByScenario(ctx context.Context, scenario string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE scenario = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("read runs for scenario %s: %w", scenario, err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ReadBatch returns the runs written under one batch token.
func (s *Store) ReadBatch(ctx context.Context, batchToken string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE batch_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, batchToken)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", batchToken, err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// LastSeq returns the highest seq recorded, or 0 for an empty store.
// Used to resume the logical clock across invocations.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM runs
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// ListScenarios returns the distinct scenario names, alphabetically.
func (s *Store) ListScenarios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT scenario FROM runs
		ORDER BY scenario COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}
	return names, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	err := row.Scan(
		&r.ID,
		&r.BatchToken,
		&r.Seq,
		&r.Scenario,
		&r.Resolution,
		&r.WeightsPath,
		&r.SrcPath,
		&r.DestPath,
		&r.RelativeError,
		&r.Tolerance,
		&r.Outcome,
		&r.ErrorKind,
		&r.ErrorMessage,
		&r.NNZ,
	)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
