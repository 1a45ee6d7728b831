package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

// Capability interfaces. Each concrete entry implements the ones that make
// sense for it; nothing embeds anything.
type (
	HasAccess interface {
		AccessFlags() uint16
		SetAccessFlags(uint16)
	}
	HasAnnotations interface {
		AnnotationList() []classfile.Annotation
		AddAnnotation(classfile.Annotation)
	}
	HasNullability interface {
		NullabilityValue() Nullability
		SetNullability(Nullability)
	}
	HasVersionHistory interface {
		ExistsIn() *VersionSet
	}
	HasVisibilityHistory interface {
		HasAccess
		HasVersionHistory
		AltVisibility() *History[Visibility]
	}
	HasModalityHistory interface {
		HasAccess
		HasVersionHistory
		AltModality() *History[Modality]
	}
)

// FieldKey is name + descriptor.
func FieldKey(name, desc string) string {
	return name + desc
}

// ArgsSignature is the method bucket key: the name followed by the
// argument descriptors. Methods that differ only in return type share it.
func ArgsSignature(name, desc string) (string, error) {
	mt, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return "", err
	}
	return name + "(" + mt.ArgumentsKey() + ")", nil
}

// ReturnDesc is the return descriptor of a method descriptor.
func ReturnDesc(desc string) (string, error) {
	mt, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return "", err
	}
	return mt.Return, nil
}

// MethodKey is the full (argument signature, return descriptor) key.
func MethodKey(name, desc string) (args, ret string, err error) {
	if args, err = ArgsSignature(name, desc); err != nil {
		return "", "", err
	}
	ret, err = ReturnDesc(desc)
	return args, ret, err
}

// ClassEntry is the merged state of one class.
type ClassEntry struct {
	FQName      string
	Access      uint16
	Signature   string
	SuperName   string
	Interfaces  []string
	Annotations []classfile.Annotation

	Outer        *OuterClass
	InnerClasses map[string]InnerClassRef

	Versions          VersionSet
	VisibilityHistory History[Visibility]
	ModalityHistory   History[Modality]

	IsKotlin bool

	Fields  map[string]*FieldEntry
	Methods map[string]*MethodGroup
}

// NewClassEntry creates an empty entry for the named class.
func NewClassEntry(fqName string) *ClassEntry {
	return &ClassEntry{
		FQName:       fqName,
		Interfaces:   []string{},
		Annotations:  []classfile.Annotation{},
		InnerClasses: make(map[string]InnerClassRef),
		Fields:       make(map[string]*FieldEntry),
		Methods:      make(map[string]*MethodGroup),
	}
}

func (c *ClassEntry) AccessFlags() uint16                    { return c.Access }
func (c *ClassEntry) SetAccessFlags(a uint16)                { c.Access = a }
func (c *ClassEntry) AnnotationList() []classfile.Annotation { return c.Annotations }
func (c *ClassEntry) AddAnnotation(a classfile.Annotation)   { c.Annotations = append(c.Annotations, a) }
func (c *ClassEntry) ExistsIn() *VersionSet                  { return &c.Versions }
func (c *ClassEntry) AltVisibility() *History[Visibility]    { return &c.VisibilityHistory }
func (c *ClassEntry) AltModality() *History[Modality]        { return &c.ModalityHistory }

// IsMemberClass reports whether outer-class linkage is set.
func (c *ClassEntry) IsMemberClass() bool {
	return c.Outer != nil
}

// DeclaredVisibility is the visibility recorded for the first version.
// Member classes carry it in their own nested-class entry, since the
// class-level flags cannot express private or protected; ownInner reports
// whether that entry exists.
func (c *ClassEntry) DeclaredVisibility() (v Visibility, ownInner bool) {
	if ic, ok := c.InnerClasses[c.FQName]; ok {
		return VisibilityOf(ic.Access), true
	}
	return VisibilityOf(c.Access), false
}

// AddField inserts f, failing if its key is already present.
func (c *ClassEntry) AddField(f *FieldEntry) error {
	key := f.Key()
	if _, ok := c.Fields[key]; ok {
		return &KeyCollisionError{Class: c.FQName, Kind: MemberField, Key: key}
	}
	c.Fields[key] = f
	return nil
}

// AddMethod inserts m into its argument-signature bucket, failing if the
// bucket already holds the same return descriptor. A second return
// descriptor turns the bucket into a group.
func (c *ClassEntry) AddMethod(m *MethodEntry) error {
	args, ret, err := MethodKey(m.Name, m.Desc)
	if err != nil {
		return fmt.Errorf("class %s: method %s: %w", c.FQName, m.Name, err)
	}
	group, ok := c.Methods[args]
	if !ok {
		group = &MethodGroup{ArgsSignature: args, byReturn: make(map[string]*MethodEntry)}
		c.Methods[args] = group
	}
	if _, dup := group.byReturn[ret]; dup {
		return &KeyCollisionError{Class: c.FQName, Kind: MemberMethod, Key: args + ret}
	}
	group.byReturn[ret] = m
	group.members = append(group.members, m)
	return nil
}

// Field looks up a field by name and descriptor.
func (c *ClassEntry) Field(name, desc string) *FieldEntry {
	return c.Fields[FieldKey(name, desc)]
}

// Method looks up a method by name and descriptor.
func (c *ClassEntry) Method(name, desc string) *MethodEntry {
	args, ret, err := MethodKey(name, desc)
	if err != nil {
		return nil
	}
	if g, ok := c.Methods[args]; ok {
		return g.byReturn[ret]
	}
	return nil
}

// Group returns the bucket for an argument signature, or nil.
func (c *ClassEntry) Group(args string) *MethodGroup {
	return c.Methods[args]
}

// SortedFields returns the fields ordered by key.
func (c *ClassEntry) SortedFields() []*FieldEntry {
	out := make([]*FieldEntry, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *FieldEntry) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

// SortedMethods returns every method of every bucket ordered by
// (argument signature, return descriptor).
func (c *ClassEntry) SortedMethods() []*MethodEntry {
	keys := make([]string, 0, len(c.Methods))
	for k := range c.Methods {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var out []*MethodEntry
	for _, k := range keys {
		g := c.Methods[k]
		rets := make([]string, 0, len(g.byReturn))
		for r := range g.byReturn {
			rets = append(rets, r)
		}
		slices.Sort(rets)
		for _, r := range rets {
			out = append(out, g.byReturn[r])
		}
	}
	return out
}

// SortedInnerClasses returns the nested-class table ordered by name.
func (c *ClassEntry) SortedInnerClasses() []InnerClassRef {
	out := make([]InnerClassRef, 0, len(c.InnerClasses))
	for _, ic := range c.InnerClasses {
		out = append(out, ic)
	}
	slices.SortFunc(out, func(a, b InnerClassRef) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// MemberCount is the number of fields plus methods.
func (c *ClassEntry) MemberCount() int {
	n := len(c.Fields)
	for _, g := range c.Methods {
		n += len(g.members)
	}
	return n
}

// FieldEntry is the merged state of one field.
type FieldEntry struct {
	Name        string
	Desc        string
	Signature   string
	Value       any
	Access      uint16
	Nullability Nullability
	Annotations []classfile.Annotation

	Versions          VersionSet
	VisibilityHistory History[Visibility]
}

// Key is name + descriptor.
func (f *FieldEntry) Key() string {
	return FieldKey(f.Name, f.Desc)
}

func (f *FieldEntry) AccessFlags() uint16                    { return f.Access }
func (f *FieldEntry) SetAccessFlags(a uint16)                { f.Access = a }
func (f *FieldEntry) AnnotationList() []classfile.Annotation { return f.Annotations }
func (f *FieldEntry) AddAnnotation(a classfile.Annotation)   { f.Annotations = append(f.Annotations, a) }
func (f *FieldEntry) NullabilityValue() Nullability          { return f.Nullability }
func (f *FieldEntry) SetNullability(n Nullability)           { f.Nullability = n }
func (f *FieldEntry) ExistsIn() *VersionSet                  { return &f.Versions }
func (f *FieldEntry) AltVisibility() *History[Visibility]    { return &f.VisibilityHistory }

// MethodOrGroup is either a single method or a bucket of methods sharing an
// argument signature.
type MethodOrGroup interface {
	MethodName() string
	// Descriptor is the representative descriptor; for a group, its first
	// member's.
	Descriptor() string
	Members() []*MethodEntry
}

// MethodEntry is the merged state of one method.
type MethodEntry struct {
	Name              string
	Desc              string
	Signature         string
	Exceptions        []string
	Access            uint16
	Nullability       Nullability
	Annotations       []classfile.Annotation
	AnnotationDefault *classfile.ElementValue
	Parameters        []*ParameterInfo

	Versions          VersionSet
	VisibilityHistory History[Visibility]
	ModalityHistory   History[Modality]
}

func (m *MethodEntry) MethodName() string                     { return m.Name }
func (m *MethodEntry) Descriptor() string                     { return m.Desc }
func (m *MethodEntry) Members() []*MethodEntry                { return []*MethodEntry{m} }
func (m *MethodEntry) AccessFlags() uint16                    { return m.Access }
func (m *MethodEntry) SetAccessFlags(a uint16)                { m.Access = a }
func (m *MethodEntry) AnnotationList() []classfile.Annotation { return m.Annotations }
func (m *MethodEntry) AddAnnotation(a classfile.Annotation)   { m.Annotations = append(m.Annotations, a) }
func (m *MethodEntry) NullabilityValue() Nullability          { return m.Nullability }
func (m *MethodEntry) SetNullability(n Nullability)           { m.Nullability = n }
func (m *MethodEntry) ExistsIn() *VersionSet                  { return &m.Versions }
func (m *MethodEntry) AltVisibility() *History[Visibility]    { return &m.VisibilityHistory }
func (m *MethodEntry) AltModality() *History[Modality]        { return &m.ModalityHistory }

// IsConstructor reports whether m is an instance initializer.
func (m *MethodEntry) IsConstructor() bool {
	return m.Name == "<init>"
}

// Parameter returns the info for index i, growing the table as needed.
func (m *MethodEntry) Parameter(i int) *ParameterInfo {
	for len(m.Parameters) <= i {
		m.Parameters = append(m.Parameters, &ParameterInfo{Index: len(m.Parameters), Annotations: []classfile.Annotation{}})
	}
	return m.Parameters[i]
}

// MethodGroup is the bucket of methods sharing an argument signature. With
// a single member it is just that method.
type MethodGroup struct {
	ArgsSignature string
	members       []*MethodEntry
	byReturn      map[string]*MethodEntry
}

func (g *MethodGroup) MethodName() string      { return g.members[0].Name }
func (g *MethodGroup) Descriptor() string      { return g.members[0].Desc }
func (g *MethodGroup) Members() []*MethodEntry { return slices.Clone(g.members) }

// IsGroup reports whether the bucket holds more than one return type.
func (g *MethodGroup) IsGroup() bool {
	return len(g.members) > 1
}

// ParameterInfo is the merged state of one method parameter.
type ParameterInfo struct {
	Index       int
	Access      uint16
	Name        string
	Nullability Nullability
	Annotations []classfile.Annotation
}

func (p *ParameterInfo) AnnotationList() []classfile.Annotation { return p.Annotations }
func (p *ParameterInfo) AddAnnotation(a classfile.Annotation) {
	p.Annotations = append(p.Annotations, a)
}
func (p *ParameterInfo) NullabilityValue() Nullability { return p.Nullability }
func (p *ParameterInfo) SetNullability(n Nullability)  { p.Nullability = n }
