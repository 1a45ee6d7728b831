package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsSignature(t *testing.T) {
	args, err := ArgsSignature("f", "(ILjava/lang/String;)V")
	require.NoError(t, err)
	assert.Equal(t, "f(I;Ljava/lang/String;)", args)

	// fI() and f(I) must not collide.
	a1, err := ArgsSignature("fI", "()V")
	require.NoError(t, err)
	a2, err := ArgsSignature("f", "(I)V")
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)

	_, err = ArgsSignature("f", "I")
	assert.Error(t, err)
}

func TestAddFieldCollision(t *testing.T) {
	c := NewClassEntry("p/A")
	require.NoError(t, c.AddField(&FieldEntry{Name: "x", Desc: "I"}))
	require.NoError(t, c.AddField(&FieldEntry{Name: "x", Desc: "J"}), "same name, other type is a distinct key")

	err := c.AddField(&FieldEntry{Name: "x", Desc: "I"})
	require.Error(t, err)
	assert.True(t, IsKeyCollision(err))

	var kc *KeyCollisionError
	require.ErrorAs(t, err, &kc)
	assert.Equal(t, "p/A", kc.Class)
	assert.Equal(t, MemberField, kc.Kind)
	assert.Equal(t, "xI", kc.Key)
}

func TestAddMethodGroups(t *testing.T) {
	c := NewClassEntry("p/A")
	require.NoError(t, c.AddMethod(&MethodEntry{Name: "get", Desc: "()Ljava/lang/Object;"}))
	require.NoError(t, c.AddMethod(&MethodEntry{Name: "get", Desc: "()Ljava/lang/String;"}))

	g := c.Group("get()")
	require.NotNil(t, g)
	assert.True(t, g.IsGroup())
	assert.Equal(t, "()Ljava/lang/Object;", g.Descriptor(), "representative is the first member")
	assert.Equal(t, "get", g.MethodName())
	assert.Len(t, g.Members(), 2)

	err := c.AddMethod(&MethodEntry{Name: "get", Desc: "()Ljava/lang/String;"})
	assert.True(t, IsKeyCollision(err))
	assert.Len(t, g.Members(), 2)

	assert.NotNil(t, c.Method("get", "()Ljava/lang/String;"))
	assert.Nil(t, c.Method("get", "()I"))
	assert.Nil(t, c.Method("get", "bad"))
}

func TestSortedMembers(t *testing.T) {
	c := NewClassEntry("p/A")
	for _, n := range []string{"b", "a", "c"} {
		require.NoError(t, c.AddField(&FieldEntry{Name: n, Desc: "I"}))
	}
	require.NoError(t, c.AddMethod(&MethodEntry{Name: "m", Desc: "()V"}))
	require.NoError(t, c.AddMethod(&MethodEntry{Name: "m", Desc: "()I"}))
	require.NoError(t, c.AddMethod(&MethodEntry{Name: "<init>", Desc: "()V"}))

	var fields []string
	for _, f := range c.SortedFields() {
		fields = append(fields, f.Key())
	}
	assert.Equal(t, []string{"aI", "bI", "cI"}, fields)

	var methods []string
	for _, m := range c.SortedMethods() {
		methods = append(methods, m.Name+m.Desc)
	}
	assert.Equal(t, []string{"<init>()V", "m()I", "m()V"}, methods)
	assert.Equal(t, 6, c.MemberCount())
}

func TestNewClassEntryIsInitialized(t *testing.T) {
	c := NewClassEntry("p/A")
	assert.NotNil(t, c.Fields)
	assert.NotNil(t, c.Methods)
	assert.NotNil(t, c.InnerClasses)
	assert.NotNil(t, c.Interfaces)
	assert.NotNil(t, c.Annotations)
	assert.False(t, c.IsMemberClass())
}

func TestParameterGrows(t *testing.T) {
	m := &MethodEntry{Name: "f", Desc: "(II)V"}
	p := m.Parameter(1)
	assert.Equal(t, 1, p.Index)
	assert.Len(t, m.Parameters, 2)
	assert.Same(t, p, m.Parameter(1))
}

func TestCapabilityInterfaces(t *testing.T) {
	var _ HasVisibilityHistory = (*FieldEntry)(nil)
	var _ HasModalityHistory = (*MethodEntry)(nil)
	var _ HasModalityHistory = (*ClassEntry)(nil)
	var _ HasNullability = (*ParameterInfo)(nil)
	var _ HasAnnotations = (*ClassEntry)(nil)
	var _ MethodOrGroup = (*MethodEntry)(nil)
	var _ MethodOrGroup = (*MethodGroup)(nil)
}
