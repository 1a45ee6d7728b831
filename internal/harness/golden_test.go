package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_PAVisibility(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/p_a_visibility.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/p_a_visibility.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.NoError(t, AssertGolden(t, s.Name, result))
}

func TestSnapshot_Shape(t *testing.T) {
	snap := snapshot("shape", fixtureResult())
	require.Equal(t, "shape", snap["scenario"])
	classes, ok := snap["classes"].([]any)
	require.True(t, ok)
	require.Len(t, classes, 1)
	cls, ok := classes[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "p/A", cls["name"])
}
