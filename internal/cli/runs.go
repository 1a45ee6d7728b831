package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LDVSOFT/TestCompat/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Ledger string
	RunID  string // optional - show one run in detail
}

// RunSummary is one ledger run.
type RunSummary struct {
	ID          string `json:"id"`
	Output      string `json:"output"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Classes     int    `json:"classes"`
	Divergences int    `json:"divergences"`
}

// RunDetail is one run with everything recorded for it.
type RunDetail struct {
	RunSummary
	Versions []store.VersionRecord `json:"versions"`
	Warnings []store.Warning       `json:"warnings"`
	Emitted  []store.ClassRecord   `json:"emitted"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show merge history from a ledger",
		Long: `List the merge runs recorded in a ledger database, or show one run with
its versions, skipped artifacts and emitted classes.

Examples:
  ssg runs --ledger runs.db
  ssg runs --ledger runs.db --run 01890a5d-ac96-774b-bcce-b302099a8057
  ssg runs --ledger runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to the ledger database (required)")
	_ = cmd.MarkFlagRequired("ledger")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run in detail")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening would create an empty database
	if _, err := os.Stat(opts.Ledger); err != nil {
		return WrapExitError(ExitConfigError, "ledger not found", err)
	}
	st, err := store.Open(opts.Ledger)
	if err != nil {
		return WrapExitError(ExitConfigError, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.logger().Warn("error closing ledger", "error", closeErr)
		}
	}()

	if opts.RunID != "" {
		return showRun(ctx, opts, st, cmd)
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarize(r)
	}

	if opts.Format == "json" {
		return outputRunsJSON(cmd, summaries)
	}
	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-9s  %s  %d classes, %d divergences  %s\n",
			s.ID, s.Status, s.StartedAt, s.Classes, s.Divergences, s.Output)
	}
	return nil
}

func showRun(ctx context.Context, opts *RunsOptions, st *store.Store, cmd *cobra.Command) error {
	run, ok, err := st.GetRun(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read run", err)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("run not found: %s", opts.RunID))
	}

	detail := RunDetail{RunSummary: summarize(run)}
	if detail.Versions, err = st.RunVersions(ctx, run.ID); err != nil {
		return WrapExitError(ExitFailure, "failed to read versions", err)
	}
	if detail.Warnings, err = st.RunWarnings(ctx, run.ID); err != nil {
		return WrapExitError(ExitFailure, "failed to read warnings", err)
	}
	if detail.Emitted, err = st.RunClasses(ctx, run.ID); err != nil {
		return WrapExitError(ExitFailure, "failed to read classes", err)
	}

	if opts.Format == "json" {
		return outputRunsJSON(cmd, detail)
	}
	outputRunText(cmd.OutOrStdout(), detail, opts.Verbose)
	return nil
}

func summarize(r store.Run) RunSummary {
	s := RunSummary{
		ID:          r.ID,
		Output:      r.Output,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		Status:      string(r.Status),
		Error:       r.Error,
		Classes:     r.Classes,
		Divergences: r.Divergences,
	}
	if !r.FinishedAt.IsZero() {
		s.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	return s
}

func outputRunsJSON(cmd *cobra.Command, data any) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunText prints one run; emitted classes are listed only with
// --verbose.
func outputRunText(w io.Writer, d RunDetail, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", d.ID)
	fmt.Fprintf(w, "Status: %s\n", d.Status)
	if d.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", d.Error)
	}
	fmt.Fprintf(w, "Output: %s\n", d.Output)
	fmt.Fprintf(w, "Started: %s\n", d.StartedAt)
	if d.FinishedAt != "" {
		fmt.Fprintf(w, "Finished: %s\n", d.FinishedAt)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Versions ===")
	if len(d.Versions) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, v := range d.Versions {
		fmt.Fprintf(w, "  [%d] %s: %d classes, %d filtered, %d warnings\n", v.Seq, v.Label, v.Classes, v.Filtered, v.Warnings)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Warnings ===")
	if len(d.Warnings) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, warn := range d.Warnings {
		fmt.Fprintf(w, "  %s %s: %s\n", warn.Version, warn.Artifact, warn.Message)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Classes:     %d\n", d.Classes)
	fmt.Fprintf(w, "  Divergences: %d\n", d.Divergences)
	if verbose {
		for _, c := range d.Emitted {
			fmt.Fprintf(w, "  %s %s %d\n", c.FQName, truncateDigest(c.Digest), c.Size)
		}
	}
}

// truncateDigest shortens a hex digest for display.
func truncateDigest(digest string) string {
	if len(digest) <= 16 {
		return digest
	}
	return digest[:16]
}
