package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LDVSOFT/TestCompat/internal/config"
	"github.com/LDVSOFT/TestCompat/internal/emit"
	"github.com/LDVSOFT/TestCompat/internal/ingest"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/merge"
	"github.com/LDVSOFT/TestCompat/internal/store"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Config                 string
	Workers                int
	NoStubs                bool
	IncludeNonPublicNested bool
	Ledger                 string

	// LookupEnv resolves SSG_* overrides. If nil, defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// IDs allows overriding the ledger run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDs store.IDGenerator
}

// VersionSummary is one ingested version in the merge result.
type VersionSummary struct {
	Label    string   `json:"label"`
	Roots    []string `json:"roots"`
	Classes  int      `json:"classes"`
	Filtered int      `json:"filtered"`
	Warnings []string `json:"warnings,omitempty"`
}

// MergeResult is the outcome of a merge job.
type MergeResult struct {
	RunID       string           `json:"run_id,omitempty"`
	Output      string           `json:"output"`
	Versions    []VersionSummary `json:"versions"`
	Classes     int              `json:"classes"`
	Divergences int              `json:"divergences"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	return newMergeCommand(&MergeOptions{RootOptions: rootOpts})
}

func newMergeCommand(opts *MergeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [<v1> <v2> ... <vN> <output>]",
		Short: "Merge library versions into a superset",
		Long: `Merge two or more versions of a library into one superset of class files.

Each positional argument but the last is the root of one version (a
directory of classes and jars, or a single jar). Versions are merged in the
given order; the label of each is read from build.txt in its root, or else
taken from the root's base name. The last argument is the output directory.

Alternatively the job is read from a CUE or YAML file with --config.
SSG_OUTPUT, SSG_WORKERS and SSG_LEDGER override the job.

Exit codes:
  0 - Superset written
  1 - Merge failed (invariant violation, emission error)
  2 - Configuration error

Examples:
  ssg merge lib-1.0.jar lib-1.1.jar lib-2.0.jar out/
  ssg merge --config job.cue
  ssg merge --ledger runs.db --workers 8 v1/ v2/ out/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "job file (.cue, .yaml, .yml)")
	cmd.Flags().IntVar(&opts.Workers, "workers", config.DefaultWorkers, "parallel decode and emission workers")
	cmd.Flags().BoolVar(&opts.NoStubs, "no-stubs", false, "emit concrete methods without a body")
	cmd.Flags().BoolVar(&opts.IncludeNonPublicNested, "include-nonpublic-nested", false, "keep private and package-private member classes")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite database")

	return cmd
}

// loadJob builds the job from --config or positional arguments, then
// applies flags and environment. Every failure is a ConfigurationError.
func loadJob(opts *MergeOptions, args []string, cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.Config != "" && len(args) > 0:
		return nil, &config.ConfigurationError{Field: "args", Message: "positional arguments cannot be combined with --config"}
	case opts.Config != "":
		cfg, err = config.Load(opts.Config)
	default:
		cfg, err = config.FromArgs(args)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("no-stubs") {
		cfg.Stubs = !opts.NoStubs
	}
	if flags.Changed("include-nonpublic-nested") {
		cfg.IncludeNonPublicNested = opts.IncludeNonPublicNested
	}
	if flags.Changed("ledger") {
		cfg.Ledger = opts.Ledger
	}
	cfg.Verbose = cfg.Verbose || opts.Verbose

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveLabels settles the label of every version before anything is
// ingested, so that two roots with the same base name are caught early.
func resolveLabels(cfg *config.Config) ([]ir.Version, error) {
	labels := make([]ir.Version, len(cfg.Versions))
	seen := make(map[ir.Version]int, len(cfg.Versions))
	for i, v := range cfg.Versions {
		label, err := ingest.ResolveVersion(v.Label, v.Roots)
		if err != nil {
			return nil, &config.ConfigurationError{Field: fmt.Sprintf("versions[%d]", i), Message: "cannot resolve label", Err: err}
		}
		if prev, dup := seen[label]; dup {
			return nil, &config.ConfigurationError{
				Field:   fmt.Sprintf("versions[%d]", i),
				Message: fmt.Sprintf("label %q already used by versions[%d]; set labels explicitly", label, prev),
			}
		}
		seen[label] = i
		labels[i] = label
	}
	return labels, nil
}

func runMerge(opts *MergeOptions, args []string, cmd *cobra.Command) error {
	logger := opts.logger()

	cfg, err := loadJob(opts, args, cmd)
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid job", err)
	}
	labels, err := resolveLabels(cfg)
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid job", err)
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := openLedger(ctx, cfg, opts.IDs, logger)
	if err != nil {
		return WrapExitError(ExitConfigError, "failed to open ledger", err)
	}
	defer ledger.close()

	result, mergeErr := execute(ctx, cfg, labels, ledger, logger)
	result.RunID = ledger.runID
	ledger.finish(result, mergeErr)

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if mergeErr != nil {
		code, message := classifyMergeError(mergeErr)
		var details any
		if opts.Format == "json" {
			details = result
		}
		if err := f.Error(code, message, details); err != nil {
			return err
		}
		return ReportedExitError(ExitFailure, "merge failed", mergeErr)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	w := cmd.OutOrStdout()
	for _, v := range result.Versions {
		fmt.Fprintf(w, "version %s: %d classes, %d filtered, %d warnings\n", v.Label, v.Classes, v.Filtered, len(v.Warnings))
		for _, warning := range v.Warnings {
			f.VerboseLog("  %s", warning)
		}
	}
	fmt.Fprintf(w, "wrote %d classes to %s (%d divergences)\n", result.Classes, result.Output, result.Divergences)
	if result.RunID != "" {
		fmt.Fprintf(w, "run %s\n", result.RunID)
	}
	return nil
}

// execute ingests every version in order and writes the superset.
func execute(ctx context.Context, cfg *config.Config, labels []ir.Version, ledger *ledger, logger *slog.Logger) (*MergeResult, error) {
	result := &MergeResult{Output: cfg.Output, Versions: []VersionSummary{}}

	gen := merge.NewGenerator(
		merge.WithWorkers(cfg.Workers),
		merge.WithBodyStubs(cfg.Stubs),
		merge.WithLogger(logger),
	)
	ing := ingest.New(gen,
		ingest.WithWorkers(cfg.Workers),
		ingest.WithNonPublicNested(cfg.IncludeNonPublicNested),
		ingest.WithLogger(logger),
	)

	for i, v := range cfg.Versions {
		report, err := ing.AppendVersion(ctx, labels[i], v.Roots)
		if report != nil {
			summary := VersionSummary{
				Label:    report.Version.String(),
				Roots:    report.Roots,
				Classes:  report.Classes,
				Filtered: report.Filtered,
			}
			for _, w := range report.Warnings {
				summary.Warnings = append(summary.Warnings, w.Error())
			}
			result.Versions = append(result.Versions, summary)
			ledger.recordVersion(ctx, i, report)
		}
		if err != nil {
			return result, fmt.Errorf("version %s: %w", labels[i], err)
		}
	}

	if err := gen.DoOutput(ctx, cfg.Output); err != nil {
		return result, err
	}
	outputs := gen.Outputs()
	result.Classes = len(outputs)
	result.Divergences = gen.Stats().Divergences
	ledger.recordClasses(ctx, outputs)
	return result, nil
}

// classifyMergeError maps a merge failure to a response code.
func classifyMergeError(err error) (code, message string) {
	var (
		iv *merge.InvariantViolationError
		ee *emit.EmissionError
	)
	switch {
	case errors.As(err, &iv):
		return string(merge.ErrCodeInvariantViolation), err.Error()
	case errors.As(err, &ee):
		return string(emit.ErrCodeEmission), err.Error()
	case errors.Is(err, context.Canceled):
		return "E_CANCELLED", err.Error()
	default:
		return "E_MERGE", err.Error()
	}
}
