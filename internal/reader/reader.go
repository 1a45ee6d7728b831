// Package reader converts decoded class files into the per-version
// declarations the merge engine consumes.
package reader

import (
	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/meta"
)

// KotlinMetadataType marks classes compiled by kotlinc.
const KotlinMetadataType = "Lkotlin/Metadata;"

// Nullability annotations understood on input. They are folded into the
// declaration's Nullability and not copied, so the output carries one
// marker regardless of which library the input used.
var (
	notNullTypes = map[string]struct{}{
		"Lorg/jetbrains/annotations/NotNull;":                  {},
		"Ljavax/annotation/Nonnull;":                           {},
		"Landroidx/annotation/NonNull;":                        {},
		"Landroid/support/annotation/NonNull;":                 {},
		"Lorg/jspecify/annotations/NonNull;":                   {},
		"Lorg/checkerframework/checker/nullness/qual/NonNull;": {},
		"Ledu/umd/cs/findbugs/annotations/NonNull;":            {},
		meta.NotNullType:                                       {},
	}
	nullableTypes = map[string]struct{}{
		"Lorg/jetbrains/annotations/Nullable;":                  {},
		"Ljavax/annotation/Nullable;":                           {},
		"Ljavax/annotation/CheckForNull;":                       {},
		"Landroidx/annotation/Nullable;":                        {},
		"Landroid/support/annotation/Nullable;":                 {},
		"Lorg/jspecify/annotations/Nullable;":                   {},
		"Lorg/checkerframework/checker/nullness/qual/Nullable;": {},
		"Ledu/umd/cs/findbugs/annotations/Nullable;":            {},
		meta.NullableType:                                       {},
	}
)

// Read converts cls as seen in version v. origin names the artifact it came
// from and is carried through for diagnostics.
func Read(cls *classfile.Class, v ir.Version, origin string) (*ir.ClassDecl, error) {
	decl := &ir.ClassDecl{
		Version:    v,
		Origin:     origin,
		Access:     cls.Access,
		Name:       cls.Name,
		Signature:  cls.Signature,
		SuperName:  cls.SuperName,
		Interfaces: append([]string{}, cls.Interfaces...),
	}
	decl.Annotations, _ = splitNullability(cls.Annotations)
	_, decl.IsKotlin = classfile.FindAnnotation(cls.Annotations, KotlinMetadataType)

	for _, ic := range cls.InnerClasses {
		decl.InnerClasses = append(decl.InnerClasses, ir.InnerClassRef{
			Name:      ic.Name,
			OuterName: ic.OuterName,
			InnerName: ic.InnerName,
			Access:    ic.Access,
		})
	}
	decl.Outer = outerOf(cls)

	for _, f := range cls.Fields {
		anns, n := splitNullability(f.Annotations)
		decl.Fields = append(decl.Fields, &ir.FieldDecl{
			Access:      f.Access,
			Name:        f.Name,
			Desc:        f.Desc,
			Signature:   f.Signature,
			Value:       f.Value,
			Nullability: n,
			Annotations: anns,
		})
	}
	for _, m := range cls.Methods {
		md, err := readMethod(m)
		if err != nil {
			return nil, err
		}
		decl.Methods = append(decl.Methods, md)
	}
	return decl, nil
}

// outerOf derives outer-class linkage: EnclosingMethod for local and
// anonymous classes, otherwise the class's own nested-class entry.
func outerOf(cls *classfile.Class) *ir.OuterClass {
	if em := cls.EnclosingMethod; em != nil {
		return &ir.OuterClass{
			Owner:      em.Owner,
			MethodName: em.MethodName,
			MethodDesc: em.MethodDesc,
			Enclosing:  true,
		}
	}
	for _, ic := range cls.InnerClasses {
		if ic.Name == cls.Name && ic.OuterName != "" {
			return &ir.OuterClass{Owner: ic.OuterName}
		}
	}
	return nil
}

func readMethod(m *classfile.Method) (*ir.MethodDecl, error) {
	mt, err := classfile.ParseMethodDescriptor(m.Desc)
	if err != nil {
		return nil, err
	}
	anns, n := splitNullability(m.Annotations)
	md := &ir.MethodDecl{
		Access:      m.Access,
		Name:        m.Name,
		Desc:        m.Desc,
		Signature:   m.Signature,
		Exceptions:  append([]string{}, m.Exceptions...),
		Nullability: n,
		Annotations: anns,
	}
	if m.AnnotationDefault != nil {
		def := *m.AnnotationDefault
		md.AnnotationDefault = &def
	}

	// MethodParameters may list synthetic or mandated parameters the
	// descriptor-based parameter annotation table does not; names are only
	// trusted when both agree on the count.
	named := len(m.Parameters) == len(mt.Args)
	// javac leaves synthetic and mandated leading parameters (the outer
	// instance of an inner-class constructor, an enum's name and ordinal)
	// out of the annotation table, so a short table covers the last
	// arguments.
	skipped := max(len(mt.Args)-len(m.ParameterAnnotations), 0)
	for i := range mt.Args {
		p := ir.ParameterDecl{Index: i, Annotations: []classfile.Annotation{}}
		if named {
			p.Name = m.Parameters[i].Name
			p.Access = m.Parameters[i].Access
		}
		if j := i - skipped; j >= 0 && j < len(m.ParameterAnnotations) {
			p.Annotations, p.Nullability = splitNullability(m.ParameterAnnotations[j])
		}
		md.Parameters = append(md.Parameters, p)
	}
	return md, nil
}

// splitNullability separates nullability annotations from the rest and
// drops our own existence and history markers, which describe a previous
// merge rather than the input.
func splitNullability(anns []classfile.Annotation) ([]classfile.Annotation, ir.Nullability) {
	out := []classfile.Annotation{}
	n := ir.NullabilityDefault
	for _, a := range anns {
		if _, ok := notNullTypes[a.Type]; ok {
			n = ir.NullabilityNotNull
			continue
		}
		if _, ok := nullableTypes[a.Type]; ok {
			n = ir.NullabilityNullable
			continue
		}
		if meta.IsMarker(a.Type) {
			continue
		}
		out = append(out, a)
	}
	return out, n
}
