// Package merge folds per-version class declarations into one superset per
// class and writes the result out.
//
// A Generator is single-writer: AppendClass and AppendClasses must not be
// called concurrently. DoOutput parallelises emission internally.
package merge

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/emit"
	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// DefaultWorkers bounds parallel emission when no worker count is given.
const DefaultWorkers = 4

// Stats counts what the generator has seen.
type Stats struct {
	Declarations  int
	Divergences   int
	KotlinClasses int
}

// Generator is the merge engine.
type Generator struct {
	classes map[string]*ir.ClassEntry
	emitter emit.Emitter
	workers int
	logger  *slog.Logger
	stats   Stats
	outputs []OutputRecord
}

// Option configures a Generator.
type Option func(*Generator)

// WithBodyStubs controls whether concrete methods get a throwing body.
// Default: true.
func WithBodyStubs(on bool) Option {
	return func(g *Generator) {
		g.emitter.WithBodyStubs = on
	}
}

// WithWorkers bounds the number of classes emitted concurrently.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates an empty generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		classes: make(map[string]*ir.ClassEntry),
		emitter: emit.Emitter{WithBodyStubs: true},
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Class returns the merged entry for an internal name, or nil.
func (g *Generator) Class(name string) *ir.ClassEntry {
	return g.classes[name]
}

// Classes returns every merged entry ordered by name.
func (g *Generator) Classes() []*ir.ClassEntry {
	out := make([]*ir.ClassEntry, 0, len(g.classes))
	for _, c := range g.classes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *ir.ClassEntry) int {
		return strings.Compare(a.FQName, b.FQName)
	})
	return out
}

// Stats returns the counters so far.
func (g *Generator) Stats() Stats {
	return g.stats
}

// AppendClasses merges decls in order and stops at the first error.
func (g *Generator) AppendClasses(decls []*ir.ClassDecl) error {
	for _, d := range decls {
		if err := g.AppendClass(d); err != nil {
			return err
		}
	}
	return nil
}

// AppendClass merges one version's view of a class. The declaration is
// validated before anything is touched: on error the IR is unchanged.
func (g *Generator) AppendClass(decl *ir.ClassDecl) error {
	if err := validate(decl); err != nil {
		return violation(decl, err)
	}
	g.stats.Declarations++

	entry, ok := g.classes[decl.Name]
	if !ok {
		entry = newClass(decl)
		g.classes[decl.Name] = entry
		if entry.IsKotlin {
			g.stats.KotlinClasses++
		}
		g.logger.Debug("class added", "class", decl.Name, "version", decl.Version)
	} else {
		g.mergeClass(entry, decl)
	}

	for _, fd := range decl.Fields {
		if f := entry.Field(fd.Name, fd.Desc); f != nil {
			g.mergeField(f, fd, decl.Version)
			continue
		}
		if err := entry.AddField(newField(fd, decl.Version)); err != nil {
			return violation(decl, err)
		}
	}
	for _, md := range decl.Methods {
		if m := entry.Method(md.Name, md.Desc); m != nil {
			g.mergeMethod(m, md, decl.Version)
			continue
		}
		if err := entry.AddMethod(newMethod(md, decl.Version)); err != nil {
			return violation(decl, err)
		}
	}
	return nil
}

// validate rejects declarations that would collide with themselves.
func validate(decl *ir.ClassDecl) error {
	if decl.Name == "" {
		return errors.New("class has no name")
	}
	if decl.Version == "" {
		return errors.New("declaration has no version")
	}
	fields := make(map[string]struct{}, len(decl.Fields))
	for _, f := range decl.Fields {
		key := f.Key()
		if _, dup := fields[key]; dup {
			return &ir.KeyCollisionError{Class: decl.Name, Kind: ir.MemberField, Key: key}
		}
		fields[key] = struct{}{}
	}
	methods := make(map[string]struct{}, len(decl.Methods))
	for _, m := range decl.Methods {
		args, ret, err := ir.MethodKey(m.Name, m.Desc)
		if err != nil {
			return err
		}
		if _, dup := methods[args+ret]; dup {
			return &ir.KeyCollisionError{Class: decl.Name, Kind: ir.MemberMethod, Key: args + ret}
		}
		methods[args+ret] = struct{}{}
	}
	return nil
}

func newClass(decl *ir.ClassDecl) *ir.ClassEntry {
	c := ir.NewClassEntry(decl.Name)
	c.Access = decl.Access
	c.Signature = decl.Signature
	c.SuperName = decl.SuperName
	c.Interfaces = append(c.Interfaces, decl.Interfaces...)
	c.Annotations = unionAnnotations(c.Annotations, decl.Annotations)
	c.IsKotlin = decl.IsKotlin
	if decl.Outer != nil {
		outer := *decl.Outer
		c.Outer = &outer
	}
	for _, ic := range decl.InnerClasses {
		c.InnerClasses[ic.Name] = ic
	}
	c.Versions.Add(decl.Version)
	return c
}

func (g *Generator) mergeClass(c *ir.ClassEntry, decl *ir.ClassDecl) {
	seen := c.Versions.Slice()
	c.Versions.Add(decl.Version)

	declared, _ := c.DeclaredVisibility()
	g.observe(c.VisibilityHistory.Observe(seen, declared, decl.Version, decl.Visibility()), c.FQName, "visibility", decl.Version)
	g.observe(c.ModalityHistory.Observe(seen, ir.ModalityOf(c.Access), decl.Version, ir.ModalityOf(decl.Access)), c.FQName, "modality", decl.Version)

	c.Annotations = unionAnnotations(c.Annotations, decl.Annotations)
	if decl.IsKotlin && !c.IsKotlin {
		c.IsKotlin = true
		g.stats.KotlinClasses++
	}
	// Outer linkage is fixed by the first version, absent or not.
	for _, ic := range decl.InnerClasses {
		if _, ok := c.InnerClasses[ic.Name]; !ok {
			c.InnerClasses[ic.Name] = ic
		}
	}
}

func newField(fd *ir.FieldDecl, v ir.Version) *ir.FieldEntry {
	f := &ir.FieldEntry{
		Name:        fd.Name,
		Desc:        fd.Desc,
		Signature:   fd.Signature,
		Value:       fd.Value,
		Access:      fd.Access,
		Nullability: fd.Nullability,
		Annotations: unionAnnotations(nil, fd.Annotations),
	}
	f.Versions.Add(v)
	return f
}

func (g *Generator) mergeField(f *ir.FieldEntry, fd *ir.FieldDecl, v ir.Version) {
	seen := f.Versions.Slice()
	f.Versions.Add(v)
	changed := f.VisibilityHistory.Observe(seen, ir.VisibilityOf(f.Access), v, ir.VisibilityOf(fd.Access))
	g.observe(changed, f.Key(), "visibility", v)
	f.Nullability = fd.Nullability
	f.Annotations = unionAnnotations(f.Annotations, fd.Annotations)
}

func newMethod(md *ir.MethodDecl, v ir.Version) *ir.MethodEntry {
	m := &ir.MethodEntry{
		Name:        md.Name,
		Desc:        md.Desc,
		Signature:   md.Signature,
		Exceptions:  unionStrings(nil, md.Exceptions),
		Access:      md.Access,
		Nullability: md.Nullability,
		Annotations: unionAnnotations(nil, md.Annotations),
	}
	if md.AnnotationDefault != nil {
		def := *md.AnnotationDefault
		m.AnnotationDefault = &def
	}
	mergeParameters(m, md.Parameters)
	m.Versions.Add(v)
	return m
}

func (g *Generator) mergeMethod(m *ir.MethodEntry, md *ir.MethodDecl, v ir.Version) {
	seen := m.Versions.Slice()
	m.Versions.Add(v)
	key := m.Name + m.Desc
	g.observe(m.VisibilityHistory.Observe(seen, ir.VisibilityOf(m.Access), v, ir.VisibilityOf(md.Access)), key, "visibility", v)
	g.observe(m.ModalityHistory.Observe(seen, ir.ModalityOf(m.Access), v, ir.ModalityOf(md.Access)), key, "modality", v)

	m.Nullability = md.Nullability
	m.Annotations = unionAnnotations(m.Annotations, md.Annotations)
	m.Exceptions = unionStrings(m.Exceptions, md.Exceptions)
	if m.AnnotationDefault == nil && md.AnnotationDefault != nil {
		def := *md.AnnotationDefault
		m.AnnotationDefault = &def
	}
	mergeParameters(m, md.Parameters)
}

// mergeParameters folds parameter infos by index: the first non-empty name
// and the first flags stick, nullability is the latest, annotations union.
func mergeParameters(m *ir.MethodEntry, params []ir.ParameterDecl) {
	for _, pd := range params {
		fresh := pd.Index >= len(m.Parameters)
		p := m.Parameter(pd.Index)
		if p.Name == "" {
			p.Name = pd.Name
		}
		if fresh {
			p.Access = pd.Access
		}
		p.Nullability = pd.Nullability
		p.Annotations = unionAnnotations(p.Annotations, pd.Annotations)
	}
}

func (g *Generator) observe(changed bool, what, dimension string, v ir.Version) {
	if !changed {
		return
	}
	g.stats.Divergences++
	g.logger.Debug("divergence", "declaration", what, "dimension", dimension, "version", v)
}

// unionAnnotations appends the annotations of add whose type is not yet in
// have.
func unionAnnotations(have, add []classfile.Annotation) []classfile.Annotation {
	if have == nil {
		have = []classfile.Annotation{}
	}
	for _, a := range add {
		if _, ok := classfile.FindAnnotation(have, a.Type); !ok {
			have = append(have, a)
		}
	}
	return have
}

func unionStrings(have, add []string) []string {
	if have == nil {
		have = []string{}
	}
	for _, s := range add {
		if !slices.Contains(have, s) {
			have = append(have, s)
		}
	}
	return have
}
