package ir

import "github.com/LDVSOFT/TestCompat/internal/classfile"

// ClassDecl is the shape of one class as seen in one version. It is the
// input event of the merge engine and is never mutated by it.
type ClassDecl struct {
	Version Version
	// Origin names the artifact the class was read from (a jar path, a
	// directory); informational only.
	Origin string

	Access      uint16
	Name        string
	Signature   string
	SuperName   string
	Interfaces  []string
	Annotations []classfile.Annotation

	Outer        *OuterClass
	InnerClasses []InnerClassRef

	Fields  []*FieldDecl
	Methods []*MethodDecl

	IsKotlin bool
}

// FieldDecl is one field of a ClassDecl.
type FieldDecl struct {
	Access      uint16
	Name        string
	Desc        string
	Signature   string
	Value       any
	Nullability Nullability
	Annotations []classfile.Annotation
}

// Key is the field's identity within its class.
func (f *FieldDecl) Key() string {
	return FieldKey(f.Name, f.Desc)
}

// MethodDecl is one method of a ClassDecl.
type MethodDecl struct {
	Access            uint16
	Name              string
	Desc              string
	Signature         string
	Exceptions        []string
	Nullability       Nullability
	Annotations       []classfile.Annotation
	AnnotationDefault *classfile.ElementValue
	Parameters        []ParameterDecl
}

// ParameterDecl is one parameter of a MethodDecl.
type ParameterDecl struct {
	Index       int
	Access      uint16
	Name        string
	Nullability Nullability
	Annotations []classfile.Annotation
}

// OuterClass is the outer-class linkage of a nested class. Enclosing is set
// when the linkage came from an EnclosingMethod attribute (local and
// anonymous classes); MethodName may still be empty for classes declared in
// an initializer.
type OuterClass struct {
	Owner      string
	MethodName string
	MethodDesc string
	Enclosing  bool
}

// InnerClassRef is one entry of the nested-class table.
type InnerClassRef struct {
	Name      string
	OuterName string
	InnerName string
	Access    uint16
}

// Visibility of a ClassDecl, taken from its own nested-class entry when it
// is a member class (the class-level flags cannot express private or
// protected).
func (c *ClassDecl) Visibility() Visibility {
	for _, ic := range c.InnerClasses {
		if ic.Name == c.Name {
			return VisibilityOf(ic.Access)
		}
	}
	return VisibilityOf(c.Access)
}

// IsMemberClass reports whether outer-class linkage is set.
func (c *ClassDecl) IsMemberClass() bool {
	return c.Outer != nil
}
