package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// snapshot renders the inspected output of a run for canonical JSON.
// Classes appear in name order.
func snapshot(scenarioName string, result *Result) map[string]any {
	classes := make([]any, 0, len(result.Classes))
	for _, name := range result.ClassNames() {
		classes = append(classes, result.Classes[name].Snapshot())
	}
	return map[string]any{
		"scenario": scenarioName,
		"classes":  classes,
	}
}

// Golden returns the canonical JSON a run is compared against.
func Golden(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(snapshot(scenarioName, result))
}

// RunWithGolden executes a scenario and compares the inspected markers
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Golden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
