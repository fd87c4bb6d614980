// Package program loads a scheduled program, its cost annotations and candidate
// allocation plans from a YAML description and turns them into the inputs of
// the runtime simulator.
//
// Loops are described as while nodes with an explicit trip_count; flattening
// multiplies the trip counts of nested loops. Trip counts are never inferred.
package program

import "github.com/inference-sim/tiersim/sim/cost"

// Spec is the top-level YAML structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Spec struct {
	Name        string              `yaml:"name"`
	Hardware    cost.HardwareConfig `yaml:"hardware"`
	Computation []InstructionSpec   `yaml:"computation"`
	Plans       []PlanSpec          `yaml:"plans"`
	Outstanding OutstandingSpec     `yaml:"outstanding"`
}

// InstructionSpec describes one instruction in schedule order.
// While nodes carry trip_count, condition and body instead of costs.
type InstructionSpec struct {
	Name          string   `yaml:"name"`
	Opcode        string   `yaml:"opcode"`
	Operands      []string `yaml:"operands"`
	Flops         float64  `yaml:"flops"`
	BytesAccessed float64  `yaml:"bytes_accessed"`
	Elapsed       *float64 `yaml:"elapsed"` // overrides the roofline estimate when set

	TripCount *int64            `yaml:"trip_count"`
	Condition []InstructionSpec `yaml:"condition"`
	Body      []InstructionSpec `yaml:"body"`
}

// isWhile reports whether the spec describes a loop.
func (is InstructionSpec) isWhile() bool {
	return is.Opcode == "while" || is.TripCount != nil || len(is.Body) > 0 || len(is.Condition) > 0
}

// PlanSpec is one candidate allocation sequence.
type PlanSpec struct {
	Name        string           `yaml:"name"`
	Allocations []AllocationSpec `yaml:"allocations"`
}

// AllocationSpec places a value. Copy allocations name the copy instructions
// that move it into memory_space.
type AllocationSpec struct {
	Kind        string `yaml:"kind"` // "pinned" or "copy"
	Value       string `yaml:"value"`
	MemorySpace string `yaml:"memory_space"` // "default" or "alternate"
	SizeBytes   int64  `yaml:"size_bytes"`
	CopyStart   string `yaml:"copy_start"`
	CopyDone    string `yaml:"copy_done"`
}

// OutstandingSpec pre-seeds the copy queues for resuming a schedule fragment.
type OutstandingSpec struct {
	ReadDefault  []OutstandingCopySpec `yaml:"read_default"`
	WriteDefault []OutstandingCopySpec `yaml:"write_default"`
}

// OutstandingCopySpec is one copy already in flight when the fragment starts.
type OutstandingCopySpec struct {
	CopyStart      string  `yaml:"copy_start"`
	RemainingBytes float64 `yaml:"remaining_bytes"`
}
