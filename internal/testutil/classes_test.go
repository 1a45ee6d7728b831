package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

func TestClassBuilder_Decodes(t *testing.T) {
	data := NewClass("p/A").
		Field(classfile.AccPublic, "x", "I").
		Method(classfile.AccPublic, "f", "(Ljava/lang/String;)V", "Lorg/jetbrains/annotations/NotNull;").
		ParameterAnnotations([]string{"Lorg/jetbrains/annotations/Nullable;"}).
		ParameterNames("s").
		Method(classfile.AccPublic|classfile.AccAbstract, "g", "()V").
		Bytes(t)

	cls, err := classfile.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "p/A", cls.Name)
	require.Len(t, cls.Methods, 2)
	assert.NotNil(t, cls.Methods[0].Code)
	assert.Nil(t, cls.Methods[1].Code)
	assert.Equal(t, []classfile.MethodParameter{{Name: "s"}}, cls.Methods[0].Parameters)
}

func TestWriteJar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib", "a.jar")
	WriteJar(t, path, []string{"p/A.class"}, map[string][]byte{"p/A.class": {1, 2, 3}})

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 1)
	rc, err := r.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte{1, 2, 3}, got))
}
