package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/merge"
	"github.com/LDVSOFT/TestCompat/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIngester(opts ...Option) (*Ingester, *merge.Generator) {
	gen := merge.NewGenerator(merge.WithLogger(quietLogger()))
	return New(gen, append([]Option{WithLogger(quietLogger())}, opts...)...), gen
}

func TestAppendVersion_Directory(t *testing.T) {
	root := t.TempDir()
	testutil.WriteClass(t, root, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccPublic, "f", "()I").Bytes(t))
	testutil.WriteClass(t, root, "p/q/B", testutil.NewClass("p/q/B").Bytes(t))

	in, gen := newTestIngester()
	report, err := in.AppendVersion(context.Background(), "1", []string{root})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Classes)
	assert.Empty(t, report.Warnings)
	require.NotNil(t, gen.Class("p/A"))
	require.NotNil(t, gen.Class("p/q/B"))
	assert.NotNil(t, gen.Class("p/A").Method("f", "()I"))
}

func TestAppendVersion_TwoVersions(t *testing.T) {
	v1, v2 := t.TempDir(), t.TempDir()
	testutil.WriteClass(t, v1, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccPublic, "f", "()I").Bytes(t))
	testutil.WriteClass(t, v2, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccProtected, "f", "()I").
		Method(0, "g", "()V").Bytes(t))

	in, gen := newTestIngester()
	_, err := in.AppendVersion(context.Background(), "1", []string{v1})
	require.NoError(t, err)
	_, err = in.AppendVersion(context.Background(), "2", []string{v2})
	require.NoError(t, err)

	a := gen.Class("p/A")
	require.NotNil(t, a)
	assert.Equal(t, []string{"1", "2"}, a.Versions.Strings())
	f := a.Method("f", "()I")
	require.NotNil(t, f)
	assert.Equal(t, 2, f.VisibilityHistory.Len())
	g := a.Method("g", "()V")
	require.NotNil(t, g)
	assert.Equal(t, []string{"2"}, g.Versions.Strings())
}

func TestAppendVersion_JarAndNestedJar(t *testing.T) {
	dir := t.TempDir()
	inner := testutil.JarBytes(t, []string{"q/C.class"}, map[string][]byte{
		"q/C.class": testutil.NewClass("q/C").Bytes(t),
	})
	jar := filepath.Join(dir, "lib.jar")
	testutil.WriteJar(t, jar, []string{"p/A.class", "META-INF/lib/inner.jar"}, map[string][]byte{
		"p/A.class":              testutil.NewClass("p/A").Bytes(t),
		"META-INF/lib/inner.jar": inner,
	})

	in, gen := newTestIngester()
	report, err := in.AppendVersion(context.Background(), "1", []string{jar})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Classes)
	assert.Empty(t, report.Warnings)
	assert.NotNil(t, gen.Class("p/A"))
	assert.NotNil(t, gen.Class("q/C"))
}

func TestCollectorEmitsInWalkOrder(t *testing.T) {
	dir := t.TempDir()
	inner := testutil.JarBytes(t, []string{"q/C.class"}, map[string][]byte{
		"q/C.class": testutil.NewClass("q/C").Bytes(t),
	})
	jar := filepath.Join(dir, "lib.jar")
	testutil.WriteJar(t, jar, []string{"p/A.class", "nested/inner.jar", "p/B.class"}, map[string][]byte{
		"p/A.class":        testutil.NewClass("p/A").Bytes(t),
		"nested/inner.jar": inner,
		"p/B.class":        testutil.NewClass("p/B").Bytes(t),
	})

	var origins, released []string
	col := &collector{
		emit: func(src classSource) {
			assert.NotEmpty(t, src.data)
			origins = append(origins, src.origin)
		},
		warn: func(artifact string, err error) { t.Errorf("unexpected warning for %s: %v", artifact, err) },
		release: func(path string) {
			released = append(released, path)
			assert.NoError(t, os.Remove(path))
		},
	}
	require.NoError(t, col.root(jar))

	assert.Equal(t, []string{
		jar + "!/p/A.class",
		jar + "!/nested/inner.jar!/q/C.class",
		jar + "!/p/B.class",
	}, origins)
	require.Len(t, released, 1)
	assert.NoFileExists(t, released[0])
}

func TestAppendVersion_SingleWorker(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"p/A", "p/B", "p/C", "p/D"} {
		testutil.WriteClass(t, root, name, testutil.NewClass(name).Bytes(t))
	}

	in, gen := newTestIngester(WithWorkers(1))
	report, err := in.AppendVersion(context.Background(), "1", []string{root})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Classes)
	assert.Len(t, gen.Classes(), 4)
}

func TestAppendVersion_CorruptArtifactsAreWarnings(t *testing.T) {
	root := t.TempDir()
	testutil.WriteClass(t, root, "p/A", testutil.NewClass("p/A").Bytes(t))
	bad := testutil.WriteClass(t, root, "p/Bad", []byte("not a class file"))
	broken := filepath.Join(root, "broken.jar")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))

	in, gen := newTestIngester()
	report, err := in.AppendVersion(context.Background(), "1", []string{root})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Classes)
	require.Len(t, report.Warnings, 2)
	artifacts := []string{report.Warnings[0].Artifact, report.Warnings[1].Artifact}
	assert.ElementsMatch(t, []string{bad, broken}, artifacts)
	for _, w := range report.Warnings {
		assert.True(t, IsIngestionWarning(w))
		assert.Equal(t, ir.Version("1"), w.Version)
	}
	assert.NotNil(t, gen.Class("p/A"))
	assert.Nil(t, gen.Class("p/Bad"))
}

func TestAppendVersion_MissingRoot(t *testing.T) {
	in, _ := newTestIngester()
	_, err := in.AppendVersion(context.Background(), "1", []string{filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
}

func TestAppendVersion_Filtering(t *testing.T) {
	root := t.TempDir()
	testutil.WriteClass(t, root, "p/A", testutil.NewClass("p/A").
		Inner("p/A$Hidden", "p/A", "Hidden", classfile.AccPrivate|classfile.AccStatic).
		Inner("p/A$Open", "p/A", "Open", classfile.AccPublic|classfile.AccStatic).Bytes(t))
	testutil.WriteClass(t, root, "p/A$Hidden", testutil.NewClass("p/A$Hidden").Access(classfile.AccSuper).
		Inner("p/A$Hidden", "p/A", "Hidden", classfile.AccPrivate|classfile.AccStatic).Bytes(t))
	testutil.WriteClass(t, root, "p/A$Open", testutil.NewClass("p/A$Open").
		Inner("p/A$Open", "p/A", "Open", classfile.AccPublic|classfile.AccStatic).Bytes(t))
	testutil.WriteClass(t, root, "p/package-info", testutil.NewClass("p/package-info").
		Access(classfile.AccInterface|classfile.AccAbstract).Bytes(t))

	t.Run("default skips non-public member classes", func(t *testing.T) {
		in, gen := newTestIngester()
		report, err := in.AppendVersion(context.Background(), "1", []string{root})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Classes)
		assert.Equal(t, 2, report.Filtered)
		assert.NotNil(t, gen.Class("p/A$Open"))
		assert.Nil(t, gen.Class("p/A$Hidden"))
		assert.Nil(t, gen.Class("p/package-info"))
	})

	t.Run("non-public member classes on request", func(t *testing.T) {
		in, gen := newTestIngester(WithNonPublicNested(true))
		report, err := in.AppendVersion(context.Background(), "1", []string{root})
		require.NoError(t, err)
		assert.Equal(t, 3, report.Classes)
		assert.NotNil(t, gen.Class("p/A$Hidden"))
	})
}

func TestAppendVersion_DuplicateClassFirstWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	testutil.WriteClass(t, first, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccPublic, "first", "()V").Bytes(t))
	testutil.WriteClass(t, second, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccPublic, "second", "()V").Bytes(t))

	in, gen := newTestIngester()
	report, err := in.AppendVersion(context.Background(), "1", []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Classes)
	assert.Equal(t, 1, report.Filtered)

	a := gen.Class("p/A")
	require.NotNil(t, a)
	assert.NotNil(t, a.Method("first", "()V"))
	assert.Nil(t, a.Method("second", "()V"))
}

func TestAppendVersion_Cancelled(t *testing.T) {
	root := t.TempDir()
	testutil.WriteClass(t, root, "p/A", testutil.NewClass("p/A").Bytes(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in, gen := newTestIngester()
	_, err := in.AppendVersion(ctx, "1", []string{root})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, gen.Class("p/A"))
}

func TestResolveVersion(t *testing.T) {
	withBuild := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(withBuild, BuildFile), []byte("IU-181.2260\n"), 0o644))
	plain := filepath.Join(t.TempDir(), "release-7")
	require.NoError(t, os.Mkdir(plain, 0o755))
	jar := filepath.Join(t.TempDir(), "lib-1.2.jar")

	tests := []struct {
		name     string
		explicit string
		roots    []string
		want     ir.Version
	}{
		{"explicit wins", " 2024.1 ", []string{withBuild}, "2024.1"},
		{"build file", "", []string{withBuild}, "IU-181.2260"},
		{"directory name", "", []string{plain}, "release-7"},
		{"archive name", "", []string{jar}, "lib-1.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveVersion(tt.explicit, tt.roots)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolveVersion("", nil)
	assert.Error(t, err)
}
