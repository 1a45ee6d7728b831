package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/emit"
	"github.com/LDVSOFT/TestCompat/internal/ingest"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/merge"
	"github.com/LDVSOFT/TestCompat/internal/meta"
)

// Harness executes one scenario in its own scratch directory.
type Harness struct {
	root   string
	gen    *merge.Generator
	ingest *ingest.Ingester
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory that is removed
// afterwards. An error is returned only when the harness itself fails
// (I/O, malformed class specs); merge and emission failures land in the
// result.
//
// Execution flow:
// 1. Assemble and write the class files of every version
// 2. Ingest the versions in order
// 3. Write the superset
// 4. Decode and inspect every emitted class
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	root, err := os.MkdirTemp("", "ssg-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			logger.Warn("failed to remove scratch directory", "path", root, "error", err)
		}
	}()

	gen := merge.NewGenerator(
		merge.WithLogger(logger),
		merge.WithBodyStubs(!scenario.Options.NoStubs),
	)
	h := &Harness{
		root: root,
		gen:  gen,
		ingest: ingest.New(gen,
			ingest.WithLogger(logger),
			ingest.WithNonPublicNested(scenario.Options.IncludeNonPublicNested),
		),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	runErr := h.execute(ctx, scenario, result)
	switch {
	case runErr == nil:
	case merge.IsInvariantViolation(runErr):
		result.Failure = ErrorInvariantViolation
	case emit.IsEmissionError(runErr):
		result.Failure = ErrorEmission
	default:
		return nil, runErr
	}

	if result.Failure != scenario.ExpectError {
		if scenario.ExpectError == "" {
			result.AddError(fmt.Sprintf("unexpected %s: %v", result.Failure, runErr))
		} else {
			result.AddError(fmt.Sprintf("expected %s, got %q", scenario.ExpectError, result.Failure))
		}
		return result, nil
	}
	if result.Failure != "" {
		return result, nil
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	for i, v := range scenario.Versions {
		dir := filepath.Join(h.root, "in", strconv.Itoa(i))
		if err := writeVersion(dir, v); err != nil {
			return fmt.Errorf("version %s: %w", v.Label, err)
		}
		report, err := h.ingest.AppendVersion(ctx, ir.NewVersion(v.Label), []string{dir})
		if err != nil {
			return err
		}
		for _, w := range report.Warnings {
			result.Warnings = append(result.Warnings, w.Error())
		}
	}

	out := filepath.Join(h.root, "out")
	if err := h.gen.DoOutput(ctx, out); err != nil {
		return err
	}
	for _, rec := range h.gen.Outputs() {
		md, err := inspectFile(rec.Path)
		if err != nil {
			return fmt.Errorf("read back %s: %w", rec.FQName, err)
		}
		result.Classes[rec.FQName] = md
	}
	return nil
}

func inspectFile(path string) (*meta.ClassMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cls, err := classfile.Decode(data)
	if err != nil {
		return nil, err
	}
	return meta.Inspect(cls)
}

// writeVersion writes every class of v under dir.
func writeVersion(dir string, v VersionSpec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, spec := range v.Classes {
		cls, err := buildClass(spec)
		if err != nil {
			return fmt.Errorf("class %s: %w", spec.Name, err)
		}
		data, err := classfile.Encode(cls)
		if err != nil {
			return fmt.Errorf("class %s: %w", spec.Name, err)
		}
		// Indexed file names keep two specs of the same class apart.
		path := filepath.Join(dir, fmt.Sprintf("%03d.class", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// buildClass assembles a class file from its scenario entry. Concrete methods get a
// body that throws, so the input is loadable.
func buildClass(spec ClassSpec) (*classfile.Class, error) {
	access := classfile.AccPublic | classfile.AccSuper
	if spec.Access != nil {
		var err error
		if access, err = parseAccess(spec.Access); err != nil {
			return nil, err
		}
	}
	cls := &classfile.Class{
		MajorVersion: classfile.MajorJava8,
		Access:       access,
		Name:         spec.Name,
		SuperName:    spec.Super,
		Interfaces:   spec.Interfaces,
		Annotations:  annotations(spec.Annotations),
	}
	if cls.SuperName == "" {
		cls.SuperName = classfile.ObjectClass
	}
	if spec.Kotlin {
		cls.Annotations = append(cls.Annotations, classfile.Annotation{Type: "Lkotlin/Metadata;", Visible: true})
	}
	for _, ic := range spec.Inner {
		a, err := parseAccess(ic.Access)
		if err != nil {
			return nil, err
		}
		cls.InnerClasses = append(cls.InnerClasses, classfile.InnerClass{
			Name: ic.Name, OuterName: ic.Outer, InnerName: ic.Inner, Access: a,
		})
	}
	for _, f := range spec.Fields {
		a, err := parseAccess(f.Access)
		if err != nil {
			return nil, err
		}
		cls.Fields = append(cls.Fields, &classfile.Field{
			Access: a, Name: f.Name, Desc: f.Desc, Annotations: annotations(f.Annotations),
		})
	}
	for _, m := range spec.Methods {
		method, err := buildMethod(m)
		if err != nil {
			return nil, err
		}
		cls.Methods = append(cls.Methods, method)
	}
	return cls, nil
}

func buildMethod(spec MethodSpec) (*classfile.Method, error) {
	access, err := parseAccess(spec.Access)
	if err != nil {
		return nil, err
	}
	m := &classfile.Method{
		Access:      access,
		Name:        spec.Name,
		Desc:        spec.Desc,
		Annotations: annotations(spec.Annotations),
	}
	var named, annotated bool
	for _, p := range spec.Parameters {
		named = named || p.Name != ""
		annotated = annotated || len(p.Annotations) > 0
	}
	for _, p := range spec.Parameters {
		if named {
			m.Parameters = append(m.Parameters, classfile.MethodParameter{Name: p.Name})
		}
		if annotated {
			m.ParameterAnnotations = append(m.ParameterAnnotations, annotations(p.Annotations))
		}
	}
	if access&(classfile.AccAbstract|classfile.AccNative) == 0 {
		m.Code, err = classfile.NewAssembler(access, spec.Desc).
			New("java/lang/Error").
			Dup().
			InvokeSpecial("java/lang/Error", "<init>", "()V").
			AThrow().
			Code()
		if err != nil {
			return nil, fmt.Errorf("method %s%s: %w", spec.Name, spec.Desc, err)
		}
	}
	return m, nil
}

func annotations(types []string) []classfile.Annotation {
	out := make([]classfile.Annotation, 0, len(types))
	for _, t := range types {
		out = append(out, classfile.Annotation{Type: t, Visible: true})
	}
	return out
}
