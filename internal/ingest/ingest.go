// Package ingest discovers the class files of one version, decodes them and
// feeds the merge engine.
//
// Versions are processed one at a time. Within a version, classes are
// decoded in parallel as the walk finds them, and merging runs sequentially
// in class-name order, so the result does not depend on worker scheduling.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/merge"
	"github.com/LDVSOFT/TestCompat/internal/reader"
)

// BuildFile names the file in a version root whose contents label the
// version when no label is given explicitly.
const BuildFile = "build.txt"

// VersionReport summarises the ingestion of one version.
type VersionReport struct {
	Version ir.Version
	Roots   []string
	// Classes is the number of declarations merged.
	Classes int
	// Filtered counts classes skipped on purpose (non-public member
	// classes, module-info, package-info, duplicates).
	Filtered int
	Warnings []*IngestionWarning
}

// Ingester drives a merge.Generator one version at a time.
type Ingester struct {
	gen                    *merge.Generator
	workers                int
	includeNonPublicNested bool
	logger                 *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithWorkers bounds parallel decoding. Default: merge.DefaultWorkers.
func WithWorkers(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.workers = n
		}
	}
}

// WithNonPublicNested keeps package-private and private member classes,
// which are skipped by default.
func WithNonPublicNested(on bool) Option {
	return func(in *Ingester) {
		in.includeNonPublicNested = on
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an Ingester feeding gen.
func New(gen *merge.Generator, opts ...Option) *Ingester {
	in := &Ingester{gen: gen, workers: merge.DefaultWorkers, logger: slog.Default()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// AppendVersion ingests every class under roots as version v. Unusable
// artifacts become warnings in the report; a missing root or an invariant
// violation during merging is returned as an error.
func (in *Ingester) AppendVersion(ctx context.Context, v ir.Version, roots []string) (*VersionReport, error) {
	report := &VersionReport{Version: v, Roots: slices.Clone(roots)}
	var mu sync.Mutex
	warn := func(artifact string, err error) {
		mu.Lock()
		defer mu.Unlock()
		w := &IngestionWarning{Version: v, Artifact: artifact, Err: err}
		report.Warnings = append(report.Warnings, w)
		in.logger.Warn("artifact skipped", "version", v, "artifact", artifact, "error", err)
	}

	// Decoding starts while the walk is still running; the worker limit
	// bounds how many raw classes are held at once.
	var decoded []sequenced
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(in.workers)
	seq := 0
	col := &collector{
		emit: func(src classSource) {
			i := seq
			seq++
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				d, err := decodeSource(src, v)
				if err != nil {
					warn(src.origin, err)
					return nil
				}
				mu.Lock()
				decoded = append(decoded, sequenced{seq: i, decl: d})
				mu.Unlock()
				return nil
			})
		},
		warn: warn,
		release: func(path string) {
			if err := os.Remove(path); err != nil {
				in.logger.Warn("failed to remove temporary file", "path", path, "error", err)
			}
		},
	}
	walkErr := walk(egCtx, col, roots)
	if err := eg.Wait(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return report, walkErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Walk order decides which copy of a duplicated class wins.
	slices.SortFunc(decoded, func(a, b sequenced) int { return a.seq - b.seq })
	seen := make(map[string]struct{}, len(decoded))
	var accepted []*ir.ClassDecl
	for _, sd := range decoded {
		d := sd.decl
		if _, dup := seen[d.Name]; dup {
			in.logger.Debug("duplicate class ignored", "version", v, "class", d.Name, "origin", d.Origin)
			report.Filtered++
			continue
		}
		seen[d.Name] = struct{}{}
		if !in.keep(d) {
			report.Filtered++
			continue
		}
		accepted = append(accepted, d)
	}
	slices.SortStableFunc(accepted, func(a, b *ir.ClassDecl) int {
		return strings.Compare(a.Name, b.Name)
	})

	for _, d := range accepted {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := in.gen.AppendClass(d); err != nil {
			return report, fmt.Errorf("merge %s from %s: %w", d.Name, d.Origin, err)
		}
		report.Classes++
	}

	in.logger.Info("version ingested",
		"version", v,
		"classes", report.Classes,
		"filtered", report.Filtered,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

// sequenced is a decoded class tagged with its position in walk order.
type sequenced struct {
	seq  int
	decl *ir.ClassDecl
}

// walk feeds every root to col, stopping early when ctx is done.
func walk(ctx context.Context, col *collector, roots []string) error {
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := col.root(root); err != nil {
			return err
		}
	}
	return nil
}

func decodeSource(src classSource, v ir.Version) (*ir.ClassDecl, error) {
	cls, err := classfile.Decode(src.data)
	if err != nil {
		return nil, err
	}
	return reader.Read(cls, v, src.origin)
}

// keep applies the ingestion filter.
func (in *Ingester) keep(d *ir.ClassDecl) bool {
	simple := classfile.SimpleName(d.Name)
	if simple == "module-info" || simple == "package-info" {
		return false
	}
	if in.includeNonPublicNested || !d.IsMemberClass() {
		return true
	}
	switch d.Visibility() {
	case ir.VisibilityPackagePrivate, ir.VisibilityPrivate:
		return false
	}
	return true
}

// ResolveVersion picks the label of a version: explicit if given, else the
// contents of BuildFile in the first root, else the first root's base name
// without extension.
func ResolveVersion(explicit string, roots []string) (ir.Version, error) {
	if v := ir.NewVersion(explicit); v != "" {
		return v, nil
	}
	if len(roots) == 0 {
		return "", fmt.Errorf("version has no roots")
	}
	root := roots[0]
	if data, err := os.ReadFile(filepath.Join(root, BuildFile)); err == nil {
		if v := ir.NewVersion(string(data)); v != "" {
			return v, nil
		}
	}
	base := filepath.Base(filepath.Clean(root))
	if isArchive(base) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ir.NewVersion(base), nil
}
