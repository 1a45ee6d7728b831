package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/meta"
	"github.com/LDVSOFT/TestCompat/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRootOptions(format string) *RootOptions {
	return &RootOptions{Format: format, Logger: quietLogger()}
}

// noEnv is a LookupEnv that finds nothing.
func noEnv(string) (string, bool) { return "", false }

// executeCmd runs cmd with args and returns its combined output.
func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeVersions lays out the p/A example: in v1 f() is public, in v2 it is
// protected and g() appears.
func writeVersions(t *testing.T) (v1, v2 string) {
	t.Helper()
	dir := t.TempDir()
	v1 = filepath.Join(dir, "v1")
	v2 = filepath.Join(dir, "v2")
	testutil.WriteClass(t, v1, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccPublic, "f", "()I").
		Bytes(t))
	testutil.WriteClass(t, v2, "p/A", testutil.NewClass("p/A").
		Method(classfile.AccProtected, "f", "()I").
		Method(0, "g", "()V").
		Bytes(t))
	return v1, v2
}

func inspectOutput(t *testing.T, path string) *meta.ClassMetadata {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cls, err := classfile.Decode(data)
	require.NoError(t, err)
	md, err := meta.Inspect(cls)
	require.NoError(t, err)
	return md
}
