package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/meta"
	"github.com/LDVSOFT/TestCompat/internal/testutil"
)

func decode(t *testing.T, b *testutil.ClassBuilder) *classfile.Class {
	t.Helper()
	cls, err := classfile.Decode(b.Bytes(t))
	require.NoError(t, err)
	return cls
}

func TestReadCopiesHeader(t *testing.T) {
	cls := decode(t, testutil.NewClass("p/A").
		Signature("<T:Ljava/lang/Object;>Ljava/lang/Object;").
		Implements("java/io/Serializable").
		Annotate("Ljava/lang/Deprecated;"))

	decl, err := Read(cls, "1", "a.jar")
	require.NoError(t, err)
	assert.Equal(t, ir.Version("1"), decl.Version)
	assert.Equal(t, "a.jar", decl.Origin)
	assert.Equal(t, "p/A", decl.Name)
	assert.Equal(t, classfile.ObjectClass, decl.SuperName)
	assert.Equal(t, []string{"java/io/Serializable"}, decl.Interfaces)
	assert.Equal(t, "<T:Ljava/lang/Object;>Ljava/lang/Object;", decl.Signature)
	require.Len(t, decl.Annotations, 1)
	assert.False(t, decl.IsKotlin)
	assert.Nil(t, decl.Outer)
}

func TestReadNullability(t *testing.T) {
	cls := decode(t, testutil.NewClass("p/A").
		Field(classfile.AccPublic, "a", "Ljava/lang/String;", "Ljavax/annotation/Nullable;").
		Field(classfile.AccPublic, "b", "Ljava/lang/String;", "Landroidx/annotation/NonNull;", "Ljava/lang/Deprecated;").
		Method(classfile.AccPublic, "f", "(Ljava/lang/String;I)Ljava/lang/String;", "Lorg/jetbrains/annotations/NotNull;").
		ParameterAnnotations([]string{"Lorg/jspecify/annotations/Nullable;"}, nil).
		ParameterNames("s", "n"))

	decl, err := Read(cls, "1", "")
	require.NoError(t, err)

	assert.Equal(t, ir.NullabilityNullable, decl.Fields[0].Nullability)
	assert.Empty(t, decl.Fields[0].Annotations, "nullability annotations are consumed")
	assert.Equal(t, ir.NullabilityNotNull, decl.Fields[1].Nullability)
	require.Len(t, decl.Fields[1].Annotations, 1)
	assert.Equal(t, "Ljava/lang/Deprecated;", decl.Fields[1].Annotations[0].Type)

	m := decl.Methods[0]
	assert.Equal(t, ir.NullabilityNotNull, m.Nullability)
	require.Len(t, m.Parameters, 2)
	assert.Equal(t, ir.ParameterDecl{Index: 0, Name: "s", Nullability: ir.NullabilityNullable, Annotations: []classfile.Annotation{}}, m.Parameters[0])
	assert.Equal(t, "n", m.Parameters[1].Name)
	assert.Equal(t, ir.NullabilityDefault, m.Parameters[1].Nullability)
}

func TestReadDropsOwnMarkers(t *testing.T) {
	cls := decode(t, testutil.NewClass("p/A").
		Annotate(meta.ExistsInType).
		Field(classfile.AccPublic, "x", "Ljava/lang/Object;", meta.NotNullType, meta.AlternativeVisibilityType))

	decl, err := Read(cls, "1", "")
	require.NoError(t, err)
	assert.Empty(t, decl.Annotations)
	assert.Empty(t, decl.Fields[0].Annotations)
	assert.Equal(t, ir.NullabilityNotNull, decl.Fields[0].Nullability)
}

func TestReadIgnoresMismatchedParameterNames(t *testing.T) {
	// Inner class constructors list the outer instance in MethodParameters.
	cls := decode(t, testutil.NewClass("p/A$B").
		Method(classfile.AccPublic, "<init>", "(Lp/A;)V").
		ParameterNames("this$0", "extra"))

	decl, err := Read(cls, "1", "")
	require.NoError(t, err)
	require.Len(t, decl.Methods[0].Parameters, 1)
	assert.Empty(t, decl.Methods[0].Parameters[0].Name)
}

func TestReadShortParameterAnnotationTable(t *testing.T) {
	// The table of an inner-class constructor omits the outer instance.
	cls := decode(t, testutil.NewClass("p/Outer$Inner").
		Method(classfile.AccPublic, "<init>", "(Lp/Outer;Ljava/lang/String;)V").
		ParameterAnnotations([]string{"Lorg/jetbrains/annotations/Nullable;"}))
	require.Len(t, cls.Methods[0].ParameterAnnotations, 1)

	decl, err := Read(cls, "1", "")
	require.NoError(t, err)
	params := decl.Methods[0].Parameters
	require.Len(t, params, 2)
	assert.Equal(t, ir.NullabilityDefault, params[0].Nullability)
	assert.Equal(t, ir.NullabilityNullable, params[1].Nullability)
}

func TestReadOuterLinkage(t *testing.T) {
	member := decode(t, testutil.NewClass("p/A$B").
		Inner("p/A$B", "p/A", "B", classfile.AccPrivate|classfile.AccStatic))
	decl, err := Read(member, "1", "")
	require.NoError(t, err)
	require.NotNil(t, decl.Outer)
	assert.Equal(t, ir.OuterClass{Owner: "p/A"}, *decl.Outer)
	assert.True(t, decl.IsMemberClass())
	assert.Equal(t, ir.VisibilityPrivate, decl.Visibility())

	local := decode(t, testutil.NewClass("p/A$1Local").
		EnclosedBy("p/A", "run", "()V").
		Inner("p/A$1Local", "", "Local", 0))
	decl, err = Read(local, "1", "")
	require.NoError(t, err)
	assert.Equal(t, ir.OuterClass{Owner: "p/A", MethodName: "run", MethodDesc: "()V", Enclosing: true}, *decl.Outer)

	anonymous := decode(t, testutil.NewClass("p/A$1").Inner("p/A$1", "", "", 0))
	decl, err = Read(anonymous, "1", "")
	require.NoError(t, err)
	assert.Nil(t, decl.Outer, "no EnclosingMethod and no outer name")
}

func TestReadKotlin(t *testing.T) {
	decl, err := Read(decode(t, testutil.NewClass("p/K").Kotlin()), "1", "")
	require.NoError(t, err)
	assert.True(t, decl.IsKotlin)
}

func TestReadRejectsBadDescriptor(t *testing.T) {
	cls := &classfile.Class{Name: "p/A", Methods: []*classfile.Method{{Name: "f", Desc: "nope"}}}
	_, err := Read(cls, "1", "")
	assert.Error(t, err)
}
