package store

import (
	"context"
	"fmt"
)

// BeginRun inserts a new run in RunRunning state and returns its ID.
func (s *Store) BeginRun(ctx context.Context, output string) (string, error) {
	id := s.ids.NewID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, output, started_at, status)
		VALUES (?, ?, ?, ?)
	`, id, output, formatTime(s.now()), string(RunRunning))
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordVersion inserts a version record.
// Uses ON CONFLICT DO NOTHING for idempotency - re-recording the same
// sequence number or label is silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) RecordVersion(ctx context.Context, runID string, v VersionRecord) error {
	roots, err := marshalRoots(v.Roots)
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_versions (run_id, seq, label, roots, classes, filtered, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, runID, v.Seq, v.Label, roots, v.Classes, v.Filtered, v.Warnings)
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return nil
}

// RecordWarning inserts a skipped artifact. The same (version, artifact)
// pair is recorded once per run.
func (s *Store) RecordWarning(ctx context.Context, runID string, w Warning) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_warnings (run_id, version, artifact, message)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, version, artifact) DO NOTHING
	`, runID, w.Version, w.Artifact, w.Message)
	if err != nil {
		return fmt.Errorf("record warning: %w", err)
	}
	return nil
}

// RecordClasses inserts emitted classes in one transaction.
func (s *Store) RecordClasses(ctx context.Context, runID string, classes []ClassRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record classes: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emitted_classes (run_id, fq_name, path, digest, size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, fq_name) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("record classes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range classes {
		if _, err := stmt.ExecContext(ctx, runID, c.FQName, c.Path, c.Digest, c.Size); err != nil {
			return fmt.Errorf("record class %s: %w", c.FQName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record classes: commit: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run. Only a running run can be
// finished; finishing twice is an error.
func (s *Store) FinishRun(ctx context.Context, runID string, r RunResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, status = ?, error = ?, classes = ?, divergences = ?
		WHERE id = ? AND status = ?
	`, formatTime(s.now()), string(r.Status), r.Error, r.Classes, r.Divergences, runID, string(RunRunning))
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %q not found or already finished", runID)
	}
	return nil
}
