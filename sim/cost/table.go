// Package cost provides CostModel implementations for the runtime simulator.
// The CostModel interface is defined in sim/ (parent package).
// This package provides TableCostModel, a roofline model over per-instruction
// FLOP and byte counts supplied by the program description.
package cost

import (
	"fmt"
	"math"

	"github.com/inference-sim/tiersim/sim"
)

// InstructionCost holds the intrinsic work of one execution of an instruction.
// Elapsed, when set, overrides the roofline estimate.
type InstructionCost struct {
	Flops         float64
	BytesAccessed float64  // bytes read or written in default memory
	Elapsed       *float64 // measured or externally computed time
}

// TableCostModel estimates compute time from a table keyed by instruction identity:
// max(flops / FlopsPerSecond, bytes / DefaultMemBandwidth), or the explicit override.
// Instructions absent from the table cost nothing.
type TableCostModel struct {
	hw    HardwareConfig
	costs map[*sim.Instruction]InstructionCost
}

// NewTableCostModel creates an empty table for the given hardware.
// Returns an error if the hardware config is invalid.
func NewTableCostModel(hw HardwareConfig) (*TableCostModel, error) {
	if err := hw.Validate(); err != nil {
		return nil, fmt.Errorf("table cost model: %w", err)
	}
	return &TableCostModel{
		hw:    hw,
		costs: make(map[*sim.Instruction]InstructionCost),
	}, nil
}

// Set records the cost of inst, replacing any previous entry.
// Returns an error for negative or non-finite values.
func (m *TableCostModel) Set(inst *sim.Instruction, c InstructionCost) error {
	if inst == nil {
		return fmt.Errorf("table cost model: instruction must not be nil")
	}
	check := func(field string, v float64) error {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("table cost model: %s.%s must be >= 0 and finite, got %v", inst.Name, field, v)
		}
		return nil
	}
	if err := check("Flops", c.Flops); err != nil {
		return err
	}
	if err := check("BytesAccessed", c.BytesAccessed); err != nil {
		return err
	}
	if c.Elapsed != nil {
		if err := check("Elapsed", *c.Elapsed); err != nil {
			return err
		}
	}
	m.costs[inst] = c
	return nil
}

// Cost returns the table entry for inst.
func (m *TableCostModel) Cost(inst *sim.Instruction) (InstructionCost, bool) {
	c, ok := m.costs[inst]
	return c, ok
}

// Hardware returns the rates the model was built with.
func (m *TableCostModel) Hardware() HardwareConfig {
	return m.hw
}

// InstructionElapsed implements sim.CostModel.
func (m *TableCostModel) InstructionElapsed(inst *sim.Instruction) float64 {
	c, ok := m.Cost(inst)
	if !ok {
		return 0
	}
	if c.Elapsed != nil {
		return *c.Elapsed
	}
	computeTime := c.Flops / m.hw.FlopsPerSecond
	memoryTime := c.BytesAccessed / m.hw.DefaultMemBandwidth
	return math.Max(computeTime, memoryTime)
}

// DefaultMemBandwidth implements sim.CostModel.
func (m *TableCostModel) DefaultMemBandwidth() float64 {
	return m.hw.DefaultMemBandwidth
}

// WithHardware returns a copy of the model that uses hw instead of the original rates.
// The cost table is shared; callers must not Set on either copy afterwards.
func (m *TableCostModel) WithHardware(hw HardwareConfig) (*TableCostModel, error) {
	if err := hw.Validate(); err != nil {
		return nil, fmt.Errorf("table cost model: %w", err)
	}
	return &TableCostModel{hw: hw, costs: m.costs}, nil
}

var _ sim.CostModel = (*TableCostModel)(nil)
