package sim

// stubCostModel charges a fixed compute time per instruction name.
// Instructions missing from elapsed cost nothing.
type stubCostModel struct {
	bandwidth float64
	elapsed   map[string]float64
}

func (m *stubCostModel) InstructionElapsed(inst *Instruction) float64 {
	return m.elapsed[inst.Name]
}

func (m *stubCostModel) DefaultMemBandwidth() float64 {
	return m.bandwidth
}

// unitCostModel is 1 byte per time unit with free compute.
func unitCostModel() *stubCostModel {
	return &stubCostModel{bandwidth: 1, elapsed: map[string]float64{}}
}

// copyPair builds a copy-start/copy-done pair moving value.
func copyPair(startName, doneName string, value *Instruction) (*Instruction, *Instruction) {
	start := &Instruction{Name: startName, Opcode: OpCopyStart, Operands: []*Instruction{value}}
	done := &Instruction{Name: doneName, Opcode: OpCopyDone, Operands: []*Instruction{start}}
	return start, done
}

// sharedBandwidthProgram mirrors a prefetch of 512 bytes (copy-start.1) overlapping
// an eviction of 128 bytes (copy-start.2).
type sharedBandwidthProgram struct {
	param0, param1 *Instruction
	start1, done1  *Instruction
	start2, done2  *Instruction
}

func newSharedBandwidthProgram() sharedBandwidthProgram {
	var p sharedBandwidthProgram
	p.param0 = &Instruction{Name: "param_0", Opcode: "parameter"}
	p.param1 = &Instruction{Name: "param_1", Opcode: "parameter"}
	p.start1, p.done1 = copyPair("copy-start.1", "copy-done.1", p.param0)
	p.start2, p.done2 = copyPair("copy-start.2", "copy-done.2", p.param1)
	return p
}

// seeded returns a simulator pre-seeded with copy-start.1 (512 bytes, read-default)
// and copy-start.2 (128 bytes, write-default).
func (p sharedBandwidthProgram) seeded(cm CostModel) (*RuntimeSimulator, error) {
	return NewRuntimeSimulatorWithQueues(cm,
		[]OutstandingAsyncCopy{{CopyStart: p.start1, RemainingBytes: 512}},
		[]OutstandingAsyncCopy{{CopyStart: p.start2, RemainingBytes: 128}},
	)
}
