package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// OutputRecord describes one written class file.
type OutputRecord struct {
	FQName string
	Path   string
	// Digest is ir.ClassDigest of the merged entry.
	Digest string
	Size   int
}

// DoOutput writes every merged class to root/<internal name>.class,
// creating package directories as needed. Classes are emitted in parallel;
// the first error is returned and stops scheduling of further classes.
func (g *Generator) DoOutput(ctx context.Context, root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	var (
		mu      sync.Mutex
		records []OutputRecord
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, entry := range g.Classes() {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rec, err := g.writeClass(root, entry)
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slices.SortFunc(records, func(a, b OutputRecord) int {
		return strings.Compare(a.FQName, b.FQName)
	})
	g.outputs = records

	var fields, methods int
	for _, c := range g.classes {
		fields += len(c.Fields)
		methods += c.MemberCount() - len(c.Fields)
	}
	g.logger.Info("superset written",
		"root", root,
		"classes", len(records),
		"fields", fields,
		"methods", methods,
		"divergences", g.stats.Divergences,
		"kotlin_classes", g.stats.KotlinClasses,
	)
	return nil
}

// Outputs returns the records of the last successful DoOutput, ordered by
// class name.
func (g *Generator) Outputs() []OutputRecord {
	return slices.Clone(g.outputs)
}

func (g *Generator) writeClass(root string, entry *ir.ClassEntry) (OutputRecord, error) {
	data, err := g.emitter.Emit(entry)
	if err != nil {
		return OutputRecord{}, err
	}
	digest, err := ir.ClassDigest(entry)
	if err != nil {
		return OutputRecord{}, fmt.Errorf("digest %s: %w", entry.FQName, err)
	}
	path := ClassPath(root, entry.FQName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return OutputRecord{}, fmt.Errorf("write %s: %w", entry.FQName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return OutputRecord{}, fmt.Errorf("write %s: %w", entry.FQName, err)
	}
	g.logger.Debug("class written", "class", entry.FQName, "path", path, "bytes", len(data))
	return OutputRecord{FQName: entry.FQName, Path: path, Digest: digest, Size: len(data)}, nil
}

// ClassPath is where the class with the given internal name lives under
// root: "p/q/A" becomes root/p/q/A.class.
func ClassPath(root, internalName string) string {
	return filepath.Join(root, filepath.FromSlash(internalName)+".class")
}
