package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mergedClass runs the p/A merge and returns the path of the output class.
func mergedClass(t *testing.T) string {
	t.Helper()
	v1, v2 := writeVersions(t)
	out := filepath.Join(t.TempDir(), "out")
	_, err := runMergeCmd(t, mergeOptions("text"), v1, v2, out)
	require.NoError(t, err)
	return filepath.Join(out, "p", "A.class")
}

func TestDump_MergedClass(t *testing.T) {
	path := mergedClass(t)

	output, err := executeCmd(t, NewDumpCommand(testRootOptions("text")), path)
	require.NoError(t, err)
	assert.Contains(t, output, "// class version 52.0 (52)")
	assert.Contains(t, output, "public class p/A")
	assert.Contains(t, output, "@Lssg/api/ExistsIn;")
	assert.Contains(t, output, "f()I")
	assert.Contains(t, output, "ATHROW")
}

func TestDump_MissingFile(t *testing.T) {
	_, err := executeCmd(t, NewDumpCommand(testRootOptions("text")), filepath.Join(t.TempDir(), "A.class"))
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestDump_NotAClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.class")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := executeCmd(t, NewDumpCommand(testRootOptions("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "cannot decode")
}

func TestInspect_Text(t *testing.T) {
	path := mergedClass(t)

	output, err := executeCmd(t, NewInspectCommand(testRootOptions("text")), path)
	require.NoError(t, err)
	assert.Equal(t, "class p/A exists_in=[v1 v2]\n"+
		"  method f()I exists_in=[v1 v2] alt_visibility=[v1=PUBLIC v2=PROTECTED]\n"+
		"  method g()V exists_in=[v2]\n", output)
}

func TestInspect_JSON(t *testing.T) {
	path := mergedClass(t)

	output, err := executeCmd(t, NewInspectCommand(testRootOptions("json")), path)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "p/A", resp.Data["name"])
	assert.Equal(t, []any{"v1", "v2"}, resp.Data["exists_in"])
	methods, ok := resp.Data["methods"].([]any)
	require.True(t, ok)
	assert.Len(t, methods, 2)
}
