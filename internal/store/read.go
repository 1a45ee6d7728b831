package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListRuns returns every run, oldest first.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, output, started_at, finished_at, status, error, classes, divergences
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. Returns found=false if it does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, output, started_at, finished_at, status, error, classes, divergences
		FROM runs
		WHERE id = ?
	`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
		status   string
	)
	if err := row.Scan(&r.ID, &r.Output, &started, &finished, &status, &r.Error, &r.Classes, &r.Divergences); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return Run{}, err
		}
	}
	r.Status = RunStatus(status)
	return r, nil
}

// RunVersions returns the versions of a run in ingestion order.
func (s *Store) RunVersions(ctx context.Context, runID string) ([]VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, label, roots, classes, filtered, warnings
		FROM run_versions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := []VersionRecord{}
	for rows.Next() {
		var (
			v     VersionRecord
			roots string
		)
		if err := rows.Scan(&v.Seq, &v.Label, &roots, &v.Classes, &v.Filtered, &v.Warnings); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if v.Roots, err = unmarshalRoots(roots); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// RunWarnings returns the skipped artifacts of a run in the order they
// were recorded.
func (s *Store) RunWarnings(ctx context.Context, runID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, artifact, message
		FROM ingest_warnings
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	warnings := []Warning{}
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.Version, &w.Artifact, &w.Message); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		warnings = append(warnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warnings: %w", err)
	}
	return warnings, nil
}

// RunClasses returns the classes a run emitted, ordered by name.
func (s *Store) RunClasses(ctx context.Context, runID string) ([]ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fq_name, path, digest, size
		FROM emitted_classes
		WHERE run_id = ?
		ORDER BY fq_name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	classes := []ClassRecord{}
	for rows.Next() {
		var c ClassRecord
		if err := rows.Scan(&c.FQName, &c.Path, &c.Digest, &c.Size); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}
