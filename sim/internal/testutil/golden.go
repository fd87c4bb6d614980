// Package testutil provides shared test infrastructure for the tiersim estimator.
// It consolidates golden dataset types and assertion helpers used across
// the sim/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one hand-computed estimate of a plan in a program under testdata/programs/.
type GoldenTestCase struct {
	Program           string  `json:"program"`
	Plan              string  `json:"plan"`
	Elapsed           float64 `json:"elapsed"`
	ReadDefaultBytes  float64 `json:"read_default_bytes"`  // outstanding after the schedule ends
	WriteDefaultBytes float64 `json:"write_default_bytes"` // outstanding after the schedule ends
}

// repoRoot resolves the repository root relative to this source file.
func repoRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..")
}

// ProgramPath returns the path of a program fixture under testdata/programs/.
func ProgramPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "testdata", "programs", name)
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	path := filepath.Join(repoRoot(t), "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
// Estimates are exact, so golden comparisons pass relTol 0; a tolerance is only
// useful for hardware rates that are not powers of two.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == got {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
