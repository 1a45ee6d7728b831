package ir

import (
	"fmt"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

// Snapshot renders the merged state of c as a canonical-JSON-ready value.
// Members appear in key order and existence sets in natural order, so the
// snapshot does not depend on map iteration.
func (c *ClassEntry) Snapshot() map[string]any {
	fields := make([]any, 0, len(c.Fields))
	for _, f := range c.SortedFields() {
		fields = append(fields, map[string]any{
			"name":           f.Name,
			"desc":           f.Desc,
			"signature":      f.Signature,
			"access":         int(f.Access),
			"value":          constantString(f.Value),
			"nullability":    f.Nullability.String(),
			"annotations":    annotationTypes(f.Annotations),
			"exists_in":      f.Versions.Strings(),
			"alt_visibility": historySnapshot(&f.VisibilityHistory),
		})
	}

	methods := []any{}
	for _, m := range c.SortedMethods() {
		params := make([]any, 0, len(m.Parameters))
		for _, p := range m.Parameters {
			params = append(params, map[string]any{
				"index":       p.Index,
				"name":        p.Name,
				"nullability": p.Nullability.String(),
				"annotations": annotationTypes(p.Annotations),
			})
		}
		exceptions := m.Exceptions
		if exceptions == nil {
			exceptions = []string{}
		}
		methods = append(methods, map[string]any{
			"name":           m.Name,
			"desc":           m.Desc,
			"signature":      m.Signature,
			"access":         int(m.Access),
			"exceptions":     exceptions,
			"nullability":    m.Nullability.String(),
			"annotations":    annotationTypes(m.Annotations),
			"parameters":     params,
			"exists_in":      m.Versions.Strings(),
			"alt_visibility": historySnapshot(&m.VisibilityHistory),
			"alt_modality":   historySnapshot(&m.ModalityHistory),
		})
	}

	inner := []any{}
	for _, ic := range c.SortedInnerClasses() {
		inner = append(inner, map[string]any{
			"name":   ic.Name,
			"outer":  ic.OuterName,
			"inner":  ic.InnerName,
			"access": int(ic.Access),
		})
	}

	snap := map[string]any{
		"name":           c.FQName,
		"access":         int(c.Access),
		"signature":      c.Signature,
		"super":          c.SuperName,
		"interfaces":     append([]string{}, c.Interfaces...),
		"kotlin":         c.IsKotlin,
		"annotations":    annotationTypes(c.Annotations),
		"inner_classes":  inner,
		"exists_in":      c.Versions.Strings(),
		"alt_visibility": historySnapshot(&c.VisibilityHistory),
		"alt_modality":   historySnapshot(&c.ModalityHistory),
		"fields":         fields,
		"methods":        methods,
	}
	if c.Outer != nil {
		snap["outer"] = map[string]any{
			"owner":       c.Outer.Owner,
			"method":      c.Outer.MethodName,
			"method_desc": c.Outer.MethodDesc,
			"enclosing":   c.Outer.Enclosing,
		}
	}
	return snap
}

func historySnapshot[T interface {
	comparable
	fmt.Stringer
}](h *History[T]) []any {
	out := make([]any, 0, h.Len())
	for _, ch := range h.Changes() {
		out = append(out, map[string]any{
			"version": ch.Version.String(),
			"value":   ch.Value.String(),
		})
	}
	return out
}

func annotationTypes(anns []classfile.Annotation) []string {
	out := make([]string, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.Type)
	}
	return out
}

// constantString renders a ConstantValue; floats are not allowed in
// canonical JSON so every constant becomes a typed string.
func constantString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%T:%v", v, v)
}
