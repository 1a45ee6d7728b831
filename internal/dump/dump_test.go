package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/emit"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/meta"
	"github.com/LDVSOFT/TestCompat/internal/testutil"
)

func TestAccess(t *testing.T) {
	tests := []struct {
		name   string
		access uint16
		kind   Kind
		want   string
	}{
		{"class", classfile.AccPublic | classfile.AccSuper, KindClass, "public class "},
		{"interface", classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract, KindClass, "public abstract interface "},
		{"enum", classfile.AccPublic | classfile.AccFinal | classfile.AccEnum, KindClass, "public final enum "},
		{"field", classfile.AccPrivate | classfile.AccFinal | classfile.AccTransient, KindField, "private final transient "},
		{"method", classfile.AccPublic | classfile.AccStatic | classfile.AccVarargs, KindMethod, "public static varargs "},
		{"package-private method", 0, KindMethod, ""},
		{"inner", classfile.AccProtected | classfile.AccStatic, KindInner, "protected static "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Access(tt.access, tt.kind))
		})
	}
}

func TestString_Class(t *testing.T) {
	cls := testutil.NewClass("p/A").
		Implements("java/io/Serializable").
		Field(classfile.AccPublic|classfile.AccStatic, "COUNT", "I").
		Method(classfile.AccPublic, "f", "(Ljava/lang/String;)I").
		ParameterNames("name").
		Method(classfile.AccPublic|classfile.AccAbstract, "g", "()V").
		Inner("p/A$B", "p/A", "B", classfile.AccPublic|classfile.AccStatic).
		Build(t)
	cls.Access |= classfile.AccAbstract
	vs := ir.NewVersionSet("1", "2")
	cls.Annotations = append(cls.Annotations, meta.ExistsIn(&vs))

	out, err := String(cls)
	require.NoError(t, err)

	assert.Contains(t, out, "// class version 52.0 (52)\n")
	assert.Contains(t, out, "public abstract class p/A extends java/lang/Object implements java/io/Serializable {\n")
	assert.Contains(t, out, `  @Lssg/api/ExistsIn;(versions={"1", "2"})`+"\n")
	assert.Contains(t, out, "  public static INNERCLASS p/A$B p/A B\n")
	assert.Contains(t, out, "  public static I COUNT\n")
	assert.Contains(t, out, "  public f(Ljava/lang/String;)I\n")
	assert.Contains(t, out, "    // parameter name\n")
	assert.Contains(t, out, "    NEW java/lang/Error\n")
	assert.Contains(t, out, "    ATHROW\n")
	assert.Contains(t, out, "  public abstract g()V\n")
	assert.Contains(t, out, "}\n")
}

func TestString_EmittedStub(t *testing.T) {
	entry := ir.NewClassEntry("p/A")
	entry.Access = classfile.AccPublic | classfile.AccSuper
	entry.SuperName = classfile.ObjectClass
	entry.Versions.Add("1")
	m := &ir.MethodEntry{Name: "f", Desc: "()I", Access: classfile.AccPublic}
	m.Versions.Add("1")
	require.NoError(t, entry.AddMethod(m))

	data, err := (&emit.Emitter{WithBodyStubs: true}).Emit(entry)
	require.NoError(t, err)
	cls, err := classfile.Decode(data)
	require.NoError(t, err)

	out, err := String(cls)
	require.NoError(t, err)
	assert.Contains(t, out, "    NEW java/lang/UnsupportedOperationException\n    DUP\n    LDC \""+emit.StubMessage+"\"\n")
	assert.Contains(t, out, "    INVOKESPECIAL java/lang/UnsupportedOperationException.<init> (Ljava/lang/String;)V\n    ATHROW\n")
}

func TestElementValue(t *testing.T) {
	tests := []struct {
		name string
		v    classfile.ElementValue
		want string
	}{
		{"string", classfile.StringValue(`a"b`), `"a\"b"`},
		{"enum", classfile.EnumValue("Lssg/api/Visibility;", "PUBLIC"), "Lssg/api/Visibility;.PUBLIC"},
		{"class", classfile.ElementValue{Tag: classfile.TagClass, Class: "Ljava/lang/String;"}, "Ljava/lang/String;.class"},
		{"long", classfile.ElementValue{Tag: classfile.TagLong, Const: int64(7)}, "7L"},
		{"int", classfile.ElementValue{Tag: classfile.TagInt, Const: int32(3)}, "3"},
		{"empty array", classfile.ArrayValue(), "{}"},
		{"nested", classfile.ElementValue{Tag: classfile.TagAnnotation, Annotation: &classfile.Annotation{Type: "Lq/X;"}}, "@Lq/X;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, elementValue(tt.v))
		})
	}
}
