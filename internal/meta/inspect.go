package meta

import (
	"fmt"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// Metadata is what the markers on one declaration say. A nil history slice
// means the marker was absent.
type Metadata struct {
	ExistsIn      []string
	AltVisibility []ir.Change[ir.Visibility]
	AltModality   []ir.Change[ir.Modality]
	Nullability   ir.Nullability
}

// HasMarkers reports whether any marker was present.
func (m *Metadata) HasMarkers() bool {
	return m.ExistsIn != nil || m.AltVisibility != nil || m.AltModality != nil || m.Nullability != ir.NullabilityDefault
}

// MemberMetadata is the metadata of one field.
type MemberMetadata struct {
	Name string
	Desc string
	Metadata
}

// MethodMetadata is the metadata of one method and its parameters.
type MethodMetadata struct {
	Name       string
	Desc       string
	Parameters []Metadata
	Metadata
}

// ClassMetadata is the metadata of a whole class, members in file order.
type ClassMetadata struct {
	Name    string
	Fields  []MemberMetadata
	Methods []MethodMetadata
	Metadata
}

// Inspect reads every marker from cls. Malformed markers (wrong element
// types, parallel arrays of different length, unknown enum constants) are
// reported as errors rather than skipped.
func Inspect(cls *classfile.Class) (*ClassMetadata, error) {
	out := &ClassMetadata{
		Name:    cls.Name,
		Fields:  []MemberMetadata{},
		Methods: []MethodMetadata{},
	}
	var err error
	if out.Metadata, err = read(cls.Annotations); err != nil {
		return nil, fmt.Errorf("class %s: %w", cls.Name, err)
	}
	for _, f := range cls.Fields {
		md, err := read(f.Annotations)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", cls.Name, f.Name, err)
		}
		out.Fields = append(out.Fields, MemberMetadata{Name: f.Name, Desc: f.Desc, Metadata: md})
	}
	for _, m := range cls.Methods {
		md, err := read(m.Annotations)
		if err != nil {
			return nil, fmt.Errorf("method %s.%s%s: %w", cls.Name, m.Name, m.Desc, err)
		}
		mm := MethodMetadata{Name: m.Name, Desc: m.Desc, Metadata: md}
		for i, anns := range m.ParameterAnnotations {
			pmd, err := read(anns)
			if err != nil {
				return nil, fmt.Errorf("method %s.%s%s parameter %d: %w", cls.Name, m.Name, m.Desc, i, err)
			}
			mm.Parameters = append(mm.Parameters, pmd)
		}
		out.Methods = append(out.Methods, mm)
	}
	return out, nil
}

// Field returns the metadata of the named field, or nil.
func (c *ClassMetadata) Field(name, desc string) *Metadata {
	for i := range c.Fields {
		if c.Fields[i].Name == name && c.Fields[i].Desc == desc {
			return &c.Fields[i].Metadata
		}
	}
	return nil
}

// Method returns the metadata of the named method, or nil.
func (c *ClassMetadata) Method(name, desc string) *MethodMetadata {
	for i := range c.Methods {
		if c.Methods[i].Name == name && c.Methods[i].Desc == desc {
			return &c.Methods[i]
		}
	}
	return nil
}

func read(anns []classfile.Annotation) (Metadata, error) {
	var md Metadata
	for i := range anns {
		a := &anns[i]
		switch a.Type {
		case ExistsInType:
			versions, err := stringsOf(a, elemVersions)
			if err != nil {
				return md, err
			}
			md.ExistsIn = versions
		case AlternativeVisibilityType:
			h, err := readHistory(a, elemVisibility, VisibilityEnumType, ir.ParseVisibility)
			if err != nil {
				return md, err
			}
			md.AltVisibility = h
		case AlternativeModalityType:
			h, err := readHistory(a, elemModality, ModalityEnumType, ir.ParseModality)
			if err != nil {
				return md, err
			}
			md.AltModality = h
		case NotNullType:
			md.Nullability = ir.NullabilityNotNull
		case NullableType:
			md.Nullability = ir.NullabilityNullable
		}
	}
	return md, nil
}

func readHistory[T comparable](a *classfile.Annotation, elem, enumType string, parse func(string) (T, error)) ([]ir.Change[T], error) {
	versions, err := stringsOf(a, elemVersions)
	if err != nil {
		return nil, err
	}
	values, err := arrayOf(a, elem)
	if err != nil {
		return nil, err
	}
	if len(values) != len(versions) {
		return nil, fmt.Errorf("%s: %d versions but %d %s values", a.Type, len(versions), len(values), elem)
	}
	out := make([]ir.Change[T], len(values))
	for i, v := range values {
		if v.Tag != classfile.TagEnum || v.EnumType != enumType {
			return nil, fmt.Errorf("%s.%s[%d]: expected enum %s", a.Type, elem, i, enumType)
		}
		val, err := parse(v.EnumName)
		if err != nil {
			return nil, fmt.Errorf("%s.%s[%d]: %w", a.Type, elem, i, err)
		}
		out[i] = ir.Change[T]{Version: ir.Version(versions[i]), Value: val}
	}
	return out, nil
}

func arrayOf(a *classfile.Annotation, elem string) ([]classfile.ElementValue, error) {
	v, ok := a.Element(elem)
	if !ok {
		return nil, fmt.Errorf("%s: missing element %q", a.Type, elem)
	}
	if v.Tag != classfile.TagArray {
		return nil, fmt.Errorf("%s.%s: expected array, got tag %q", a.Type, elem, v.Tag)
	}
	return v.Array, nil
}

func stringsOf(a *classfile.Annotation, elem string) ([]string, error) {
	values, err := arrayOf(a, elem)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.Const.(string)
		if v.Tag != classfile.TagString || !ok {
			return nil, fmt.Errorf("%s.%s[%d]: expected string", a.Type, elem, i)
		}
		out[i] = s
	}
	return out, nil
}
