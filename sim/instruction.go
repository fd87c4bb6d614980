// Defines the Instruction handle consumed by the runtime simulator.
// Instructions are owned by the program representation; the simulator only
// compares them by identity and reads their opcode and operands.

package sim

import "fmt"

// Opcode names the operation an instruction performs.
// Only the async copy opcodes are interpreted by the simulator; every other
// opcode is a plain instruction costed by the CostModel.
type Opcode string

const (
	OpCopyStart Opcode = "copy-start"
	OpCopyDone  Opcode = "copy-done"
	OpWhile     Opcode = "while"
)

// Instruction is an opaque handle into a scheduled program.
// Two instructions are the same instruction iff they are the same pointer.
type Instruction struct {
	Name     string        // unique within a program, used for logs and traces
	Opcode   Opcode        // copy-start, copy-done, while, or any plain opcode
	Operands []*Instruction // a copy-done's first operand is the copy-start it completes
}

// IsCopyStart reports whether the instruction issues an async copy.
func (inst *Instruction) IsCopyStart() bool {
	return inst != nil && inst.Opcode == OpCopyStart
}

// IsCopyDone reports whether the instruction waits for an async copy.
func (inst *Instruction) IsCopyDone() bool {
	return inst != nil && inst.Opcode == OpCopyDone
}

// CopyStart returns the copy-start completed by a copy-done instruction.
// Returns nil if inst is not a copy-done or has no operands.
func (inst *Instruction) CopyStart() *Instruction {
	if !inst.IsCopyDone() || len(inst.Operands) == 0 {
		return nil
	}
	return inst.Operands[0]
}

func (inst *Instruction) String() string {
	if inst == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s = %s", inst.Name, inst.Opcode)
}
