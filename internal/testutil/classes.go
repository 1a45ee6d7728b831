// Package testutil builds real class files and archives for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

// ClassBuilder assembles a classfile.Class fluently. Concrete methods get a
// minimal valid body.
type ClassBuilder struct {
	cls *classfile.Class
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{cls: &classfile.Class{
		MajorVersion: classfile.MajorJava8,
		Access:       classfile.AccPublic | classfile.AccSuper,
		Name:         name,
		SuperName:    classfile.ObjectClass,
	}}
}

// Access replaces the class access flags.
func (b *ClassBuilder) Access(access uint16) *ClassBuilder {
	b.cls.Access = access
	return b
}

// Signature sets the generic signature.
func (b *ClassBuilder) Signature(sig string) *ClassBuilder {
	b.cls.Signature = sig
	return b
}

// Implements appends interfaces.
func (b *ClassBuilder) Implements(itfs ...string) *ClassBuilder {
	b.cls.Interfaces = append(b.cls.Interfaces, itfs...)
	return b
}

// Annotate adds a runtime-visible marker annotation to the class.
func (b *ClassBuilder) Annotate(typeDesc string) *ClassBuilder {
	b.cls.Annotations = append(b.cls.Annotations, classfile.Annotation{Type: typeDesc, Visible: true})
	return b
}

// Kotlin marks the class as compiled by kotlinc.
func (b *ClassBuilder) Kotlin() *ClassBuilder {
	return b.Annotate("Lkotlin/Metadata;")
}

// Field adds a field with optional marker annotations.
func (b *ClassBuilder) Field(access uint16, name, desc string, annotations ...string) *ClassBuilder {
	b.cls.Fields = append(b.cls.Fields, &classfile.Field{
		Access:      access,
		Name:        name,
		Desc:        desc,
		Annotations: markers(annotations),
	})
	return b
}

// Method adds a method with optional marker annotations.
func (b *ClassBuilder) Method(access uint16, name, desc string, annotations ...string) *ClassBuilder {
	b.cls.Methods = append(b.cls.Methods, &classfile.Method{
		Access:      access,
		Name:        name,
		Desc:        desc,
		Annotations: markers(annotations),
	})
	return b
}

// ParameterAnnotations annotates the parameters of the most recently added
// method, one list per parameter.
func (b *ClassBuilder) ParameterAnnotations(perParam ...[]string) *ClassBuilder {
	m := b.cls.Methods[len(b.cls.Methods)-1]
	m.ParameterAnnotations = make([][]classfile.Annotation, len(perParam))
	for i, anns := range perParam {
		m.ParameterAnnotations[i] = markers(anns)
	}
	return b
}

// ParameterNames adds a MethodParameters attribute to the most recently
// added method.
func (b *ClassBuilder) ParameterNames(names ...string) *ClassBuilder {
	m := b.cls.Methods[len(b.cls.Methods)-1]
	for _, n := range names {
		m.Parameters = append(m.Parameters, classfile.MethodParameter{Name: n})
	}
	return b
}

// Inner adds a nested-class table entry.
func (b *ClassBuilder) Inner(name, outer, inner string, access uint16) *ClassBuilder {
	b.cls.InnerClasses = append(b.cls.InnerClasses, classfile.InnerClass{
		Name: name, OuterName: outer, InnerName: inner, Access: access,
	})
	return b
}

// EnclosedBy sets the EnclosingMethod attribute.
func (b *ClassBuilder) EnclosedBy(owner, method, desc string) *ClassBuilder {
	b.cls.EnclosingMethod = &classfile.EnclosingMethod{Owner: owner, MethodName: method, MethodDesc: desc}
	return b
}

// Build returns the class. Concrete methods without a body get one that
// throws java/lang/Error.
func (b *ClassBuilder) Build(t testing.TB) *classfile.Class {
	t.Helper()
	for _, m := range b.cls.Methods {
		if m.Code != nil || m.Access&(classfile.AccAbstract|classfile.AccNative) != 0 {
			continue
		}
		code, err := classfile.NewAssembler(m.Access, m.Desc).New("java/lang/Error").Dup().
			InvokeSpecial("java/lang/Error", "<init>", "()V").AThrow().Code()
		require.NoError(t, err)
		m.Code = code
	}
	return b.cls
}

// Bytes encodes the class.
func (b *ClassBuilder) Bytes(t testing.TB) []byte {
	t.Helper()
	data, err := classfile.Encode(b.Build(t))
	require.NoError(t, err)
	return data
}

func markers(types []string) []classfile.Annotation {
	out := make([]classfile.Annotation, 0, len(types))
	for _, typ := range types {
		out = append(out, classfile.Annotation{Type: typ, Visible: true})
	}
	return out
}

// WriteClass writes data to root/<internal name>.class and returns the path.
func WriteClass(t testing.TB, root, internalName string, data []byte) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(internalName)+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// JarBytes zips entries (name → content) in the given order of names.
func JarBytes(t testing.TB, names []string, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteJar writes a jar to path, creating parent directories.
func WriteJar(t testing.TB, path string, names []string, entries map[string][]byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, JarBytes(t, names, entries), 0o644))
}
