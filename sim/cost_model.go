package sim

// CostModel supplies the intrinsic costs the simulator consumes.
// It is passed to the simulator at construction and only read.
// All times share one unit; bandwidth is bytes per that unit.
type CostModel interface {
	// InstructionElapsed returns the compute time of one execution of inst.
	InstructionElapsed(inst *Instruction) float64

	// DefaultMemBandwidth returns the total transfer rate of the default-memory
	// interface, shared by both copy directions.
	DefaultMemBandwidth() float64
}
