package cost

import (
	"fmt"
	"math"
	"strings"
)

// HardwareConfig holds the device rates the table cost model divides by.
// Times come out in the unit the rates are expressed in (seconds for per-second rates).
type HardwareConfig struct {
	FlopsPerSecond      float64 `yaml:"flops_per_second"`
	DefaultMemBandwidth float64 `yaml:"default_mem_bytes_per_second"` // shared by both copy directions
}

// invalidPositiveFloat returns true if v is not a valid positive float64
// (i.e., v <= 0, NaN, or Inf).
func invalidPositiveFloat(v float64) bool {
	return v <= 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// Validate checks that every rate is a valid positive number.
// Returns an error listing all invalid fields, or nil if valid.
func (hc HardwareConfig) Validate() error {
	var problems []string
	if invalidPositiveFloat(hc.FlopsPerSecond) {
		problems = append(problems, fmt.Sprintf("FlopsPerSecond must be a valid positive number, got %v", hc.FlopsPerSecond))
	}
	if invalidPositiveFloat(hc.DefaultMemBandwidth) {
		problems = append(problems, fmt.Sprintf("DefaultMemBandwidth must be a valid positive number, got %v", hc.DefaultMemBandwidth))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid hardware config: %s", strings.Join(problems, "; "))
	}
	return nil
}
