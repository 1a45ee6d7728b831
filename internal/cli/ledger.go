package cli

import (
	"context"
	"log/slog"

	"github.com/LDVSOFT/TestCompat/internal/config"
	"github.com/LDVSOFT/TestCompat/internal/ingest"
	"github.com/LDVSOFT/TestCompat/internal/merge"
	"github.com/LDVSOFT/TestCompat/internal/store"
)

// ledger records a merge run when a ledger database is configured. With no
// database every method is a no-op. Recording failures never fail the
// merge; they are logged.
type ledger struct {
	st     *store.Store
	runID  string
	logger *slog.Logger
}

func openLedger(ctx context.Context, cfg *config.Config, ids store.IDGenerator, logger *slog.Logger) (*ledger, error) {
	l := &ledger{logger: logger}
	if cfg.Ledger == "" {
		return l, nil
	}
	var opts []store.Option
	if ids != nil {
		opts = append(opts, store.WithIDGenerator(ids))
	}
	st, err := store.Open(cfg.Ledger, opts...)
	if err != nil {
		return nil, err
	}
	runID, err := st.BeginRun(ctx, cfg.Output)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	l.st, l.runID = st, runID
	logger.Debug("run started", "run_id", runID, "ledger", cfg.Ledger)
	return l, nil
}

func (l *ledger) recordVersion(ctx context.Context, seq int, report *ingest.VersionReport) {
	if l.st == nil {
		return
	}
	rec := store.VersionRecord{
		Seq:      seq,
		Label:    report.Version.String(),
		Roots:    report.Roots,
		Classes:  report.Classes,
		Filtered: report.Filtered,
		Warnings: len(report.Warnings),
	}
	if err := l.st.RecordVersion(ctx, l.runID, rec); err != nil {
		l.logger.Warn("failed to record version", "run_id", l.runID, "version", rec.Label, "error", err)
	}
	for _, w := range report.Warnings {
		sw := store.Warning{Version: w.Version.String(), Artifact: w.Artifact, Message: w.Err.Error()}
		if err := l.st.RecordWarning(ctx, l.runID, sw); err != nil {
			l.logger.Warn("failed to record warning", "run_id", l.runID, "artifact", w.Artifact, "error", err)
		}
	}
}

func (l *ledger) recordClasses(ctx context.Context, outputs []merge.OutputRecord) {
	if l.st == nil {
		return
	}
	recs := make([]store.ClassRecord, len(outputs))
	for i, o := range outputs {
		recs[i] = store.ClassRecord{FQName: o.FQName, Path: o.Path, Digest: o.Digest, Size: int64(o.Size)}
	}
	if err := l.st.RecordClasses(ctx, l.runID, recs); err != nil {
		l.logger.Warn("failed to record classes", "run_id", l.runID, "error", err)
	}
}

// finish closes the run. It uses a fresh context so that an interrupted
// merge is still marked failed.
func (l *ledger) finish(result *MergeResult, mergeErr error) {
	if l.st == nil {
		return
	}
	r := store.RunResult{Status: store.RunSucceeded, Classes: result.Classes, Divergences: result.Divergences}
	if mergeErr != nil {
		r.Status = store.RunFailed
		r.Error = mergeErr.Error()
	}
	if err := l.st.FinishRun(context.Background(), l.runID, r); err != nil {
		l.logger.Warn("failed to finish run", "run_id", l.runID, "error", err)
	}
}

func (l *ledger) close() {
	if l.st == nil {
		return
	}
	if err := l.st.Close(); err != nil {
		l.logger.Warn("error closing ledger", "error", err)
	}
}
