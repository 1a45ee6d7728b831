package meta

import "github.com/LDVSOFT/TestCompat/internal/ir"

// Snapshot renders c for canonical JSON. Only markers that are present
// appear, so an unchanged declaration is just its name and descriptor.
func (c *ClassMetadata) Snapshot() map[string]any {
	fields := make([]any, 0, len(c.Fields))
	for _, f := range c.Fields {
		fields = append(fields, withMarkers(map[string]any{"name": f.Name, "desc": f.Desc}, &f.Metadata))
	}
	methods := make([]any, 0, len(c.Methods))
	for _, m := range c.Methods {
		snap := withMarkers(map[string]any{"name": m.Name, "desc": m.Desc}, &m.Metadata)
		var params []any
		for i := range m.Parameters {
			if m.Parameters[i].HasMarkers() {
				params = append(params, withMarkers(map[string]any{"index": i}, &m.Parameters[i]))
			}
		}
		if params != nil {
			snap["parameters"] = params
		}
		methods = append(methods, snap)
	}
	return withMarkers(map[string]any{
		"name":    c.Name,
		"fields":  fields,
		"methods": methods,
	}, &c.Metadata)
}

// Digest is the content digest of the snapshot.
func (c *ClassMetadata) Digest() (string, error) {
	return ir.Digest(ir.DomainMetadata, c.Snapshot())
}

func withMarkers(out map[string]any, md *Metadata) map[string]any {
	if md.ExistsIn != nil {
		out["exists_in"] = md.ExistsIn
	}
	if md.AltVisibility != nil {
		out["alt_visibility"] = changes(md.AltVisibility)
	}
	if md.AltModality != nil {
		out["alt_modality"] = changes(md.AltModality)
	}
	if md.Nullability != ir.NullabilityDefault {
		out["nullability"] = md.Nullability.String()
	}
	return out
}

func changes[T named](cs []ir.Change[T]) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = map[string]any{"version": c.Version.String(), "value": c.Value.String()}
	}
	return out
}
