// Package emit turns merged class entries into class files.
package emit

import (
	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/meta"
)

const (
	stubException = "java/lang/UnsupportedOperationException"
	// StubMessage is the detail message of the exception every stub body
	// throws.
	StubMessage = "Superset stub body should never be called!"

	maxParameterSlots = 255
)

// Emitter writes ir.ClassEntry values as Java 8 class files. It holds no
// state besides its options and may be shared between goroutines.
type Emitter struct {
	// WithBodyStubs gives every non-abstract, non-native method a body that
	// throws UnsupportedOperationException. Without it such methods have no
	// Code attribute, which is enough for compiling against the output but
	// not for loading it.
	WithBodyStubs bool
}

// Emit builds and encodes entry.
func (e *Emitter) Emit(entry *ir.ClassEntry) ([]byte, error) {
	cls, err := e.Build(entry)
	if err != nil {
		return nil, err
	}
	data, err := classfile.Encode(cls)
	if err != nil {
		return nil, newError(entry.FQName, "", "encode", err)
	}
	return data, nil
}

// Build converts entry into the symbolic class-file model. Members are
// written in key order so the output does not depend on ingestion order.
func (e *Emitter) Build(entry *ir.ClassEntry) (*classfile.Class, error) {
	declared, ownInner := entry.DeclaredVisibility()
	widest := ir.WidestVisibility(declared.Flags(), &entry.VisibilityHistory)
	classAccess := ir.EffectiveAccess(entry.Access, &ir.History[ir.Visibility]{}, &entry.ModalityHistory, false)
	classAccess = ir.WithVisibility(classAccess, ir.ClassFileVisibility(widest))

	cls := &classfile.Class{
		MajorVersion: classfile.MajorJava8,
		Access:       classAccess,
		Name:         entry.FQName,
		SuperName:    entry.SuperName,
		Interfaces:   append([]string{}, entry.Interfaces...),
		Signature:    entry.Signature,
	}
	if o := entry.Outer; o != nil && o.Enclosing {
		cls.EnclosingMethod = &classfile.EnclosingMethod{Owner: o.Owner, MethodName: o.MethodName, MethodDesc: o.MethodDesc}
	}

	cls.Annotations = append(cls.Annotations, entry.Annotations...)
	cls.Annotations = append(cls.Annotations, meta.ExistsIn(&entry.Versions))
	if a, ok := meta.AlternativeVisibility(&entry.VisibilityHistory); ok {
		cls.Annotations = append(cls.Annotations, a)
	}
	if a, ok := meta.AlternativeModality(&entry.ModalityHistory); ok {
		cls.Annotations = append(cls.Annotations, a)
	}

	for _, ic := range entry.SortedInnerClasses() {
		access := ic.Access
		if ic.Name == entry.FQName && ownInner {
			access = ir.WithVisibility(access, widest)
			if classAccess&classfile.AccFinal == 0 {
				access &^= classfile.AccFinal
			}
		}
		cls.InnerClasses = append(cls.InnerClasses, classfile.InnerClass{
			Name:      ic.Name,
			OuterName: ic.OuterName,
			InnerName: ic.InnerName,
			Access:    access,
		})
	}

	for _, f := range entry.SortedFields() {
		field, err := buildField(entry.FQName, f)
		if err != nil {
			return nil, err
		}
		cls.Fields = append(cls.Fields, field)
	}
	for _, m := range entry.SortedMethods() {
		method, err := e.buildMethod(entry.FQName, m)
		if err != nil {
			return nil, err
		}
		cls.Methods = append(cls.Methods, method)
	}
	return cls, nil
}

func buildField(owner string, f *ir.FieldEntry) (*classfile.Field, error) {
	if !classfile.ValidFieldDescriptor(f.Desc) {
		return nil, newError(owner, f.Key(), "invalid field descriptor", nil)
	}
	switch f.Value.(type) {
	case nil, int32, int64, float32, float64, string:
	default:
		return nil, newError(owner, f.Key(), "unsupported constant value type", nil)
	}

	field := &classfile.Field{
		Access:    ir.EffectiveAccess(f.Access, &f.VisibilityHistory, nil, false),
		Name:      f.Name,
		Desc:      f.Desc,
		Signature: f.Signature,
		Value:     f.Value,
	}
	field.Annotations = append(field.Annotations, meta.ExistsIn(&f.Versions))
	if a, ok := meta.AlternativeVisibility(&f.VisibilityHistory); ok {
		field.Annotations = append(field.Annotations, a)
	}
	if a, ok := meta.NullabilityMarker(f.Nullability); ok {
		field.Annotations = append(field.Annotations, a)
	}
	field.Annotations = append(field.Annotations, f.Annotations...)
	return field, nil
}

func (e *Emitter) buildMethod(owner string, m *ir.MethodEntry) (*classfile.Method, error) {
	member := m.Name + m.Desc
	mt, err := classfile.ParseMethodDescriptor(m.Desc)
	if err != nil {
		return nil, newError(owner, member, "invalid method descriptor", err)
	}
	access := ir.EffectiveAccess(m.Access, &m.VisibilityHistory, &m.ModalityHistory, true)
	slots := mt.ArgumentSlots()
	if access&classfile.AccStatic == 0 {
		slots++
	}
	if slots > maxParameterSlots {
		return nil, newError(owner, member, "too many parameter slots", nil)
	}

	method := &classfile.Method{
		Access:     access,
		Name:       m.Name,
		Desc:       m.Desc,
		Signature:  m.Signature,
		Exceptions: append([]string{}, m.Exceptions...),
	}
	method.Annotations = append(method.Annotations, meta.ExistsIn(&m.Versions))
	if a, ok := meta.AlternativeVisibility(&m.VisibilityHistory); ok {
		method.Annotations = append(method.Annotations, a)
	}
	if a, ok := meta.AlternativeModality(&m.ModalityHistory); ok {
		method.Annotations = append(method.Annotations, a)
	}
	if a, ok := meta.NullabilityMarker(m.Nullability); ok {
		method.Annotations = append(method.Annotations, a)
	}
	method.Annotations = append(method.Annotations, m.Annotations...)
	if m.AnnotationDefault != nil {
		def := *m.AnnotationDefault
		method.AnnotationDefault = &def
	}

	method.Parameters, method.ParameterAnnotations = parameters(m.Parameters)

	if access&(classfile.AccAbstract|classfile.AccNative) == 0 && e.WithBodyStubs {
		code, err := StubBody(access, m.Desc)
		if err != nil {
			return nil, newError(owner, member, "stub body", err)
		}
		method.Code = code
	}
	return method, nil
}

// parameters renders MethodParameters (only when some parameter has a name
// or flags) and the parameter annotation table (only when some parameter
// is annotated).
func parameters(params []*ir.ParameterInfo) ([]classfile.MethodParameter, [][]classfile.Annotation) {
	var named, annotated bool
	table := make([][]classfile.Annotation, len(params))
	for i, p := range params {
		named = named || p.Name != "" || p.Access != 0
		if a, ok := meta.NullabilityMarker(p.Nullability); ok {
			table[i] = append(table[i], a)
		}
		table[i] = append(table[i], p.Annotations...)
		annotated = annotated || len(table[i]) > 0
	}
	var mp []classfile.MethodParameter
	if named {
		mp = make([]classfile.MethodParameter, len(params))
		for i, p := range params {
			mp[i] = classfile.MethodParameter{Name: p.Name, Access: p.Access}
		}
	}
	if !annotated {
		table = nil
	}
	return mp, table
}

// StubBody assembles
//
//	new java/lang/UnsupportedOperationException
//	dup
//	ldc StubMessage
//	invokespecial java/lang/UnsupportedOperationException.<init>(Ljava/lang/String;)V
//	athrow
func StubBody(access uint16, desc string) (*classfile.Code, error) {
	return classfile.NewAssembler(access, desc).
		New(stubException).
		Dup().
		Ldc(StubMessage).
		InvokeSpecial(stubException, "<init>", "(Ljava/lang/String;)V").
		AThrow().
		Code()
}
