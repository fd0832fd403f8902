package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/questlog/internal/canon"
	"github.com/roach88/questlog/internal/tracker"
)

// Snapshot is the golden representation of a run.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Trace        []TraceEvent      `json:"trace"`
	Document     *tracker.Document `json:"document"`
	Saves        int               `json:"saves"`
}

// SnapshotJSON renders a run as canonical JSON (sorted keys, no
// whitespace) so golden files compare byte for byte.
func SnapshotJSON(name string, r *Result) ([]byte, error) {
	return canon.Marshal(Snapshot{
		ScenarioName: name,
		Trace:        r.Trace,
		Document:     r.Document,
		Saves:        r.Saves,
	})
}

// RunWithGolden executes a scenario and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	data, err := SnapshotJSON(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
