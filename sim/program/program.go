package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/tiersim/sim"
	"github.com/inference-sim/tiersim/sim/cost"
)

// DefaultPlanName names the implicit empty plan used when a program lists no plans.
const DefaultPlanName = "no-copies"

// Program is a loaded program ready for estimation.
type Program struct {
	Name             string
	Instructions     []*sim.Instruction // declaration order, loop bodies included
	Schedule         *sim.Schedule
	CostModel        *cost.TableCostModel
	Plans            []sim.NamedPlan
	ReadDefaultSeed  []sim.OutstandingAsyncCopy
	WriteDefaultSeed []sim.OutstandingAsyncCopy

	byName map[string]*sim.Instruction
}

// Instruction returns the instruction declared with name.
func (p *Program) Instruction(name string) (*sim.Instruction, bool) {
	inst, ok := p.byName[name]
	return inst, ok
}

// Plan returns the plan with the given name.
func (p *Program) Plan(name string) (sim.NamedPlan, bool) {
	for _, plan := range p.Plans {
		if plan.Name == name {
			return plan, true
		}
	}
	return sim.NamedPlan{}, false
}

// PlanNames returns plan names in declaration order.
func (p *Program) PlanNames() []string {
	names := make([]string, 0, len(p.Plans))
	for _, plan := range p.Plans {
		names = append(names, plan.Name)
	}
	return names
}

// EstimateOptions returns options seeded with the program's outstanding copies.
func (p *Program) EstimateOptions(trace bool) sim.EstimateOptions {
	return sim.EstimateOptions{
		ReadDefaultSeed:  p.ReadDefaultSeed,
		WriteDefaultSeed: p.WriteDefaultSeed,
		Trace:            trace,
	}
}

// Load reads and builds a program description file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program %q: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML program description with strict field checking and builds it.
func Parse(data []byte) (*Program, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing program: empty document")
		}
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	return Build(spec)
}

// builder accumulates instructions and validation problems while walking a Spec.
type builder struct {
	spec     Spec
	program  *Program
	specs    map[*sim.Instruction]InstructionSpec
	problems []string
}

func (b *builder) problemf(format string, args ...any) {
	b.problems = append(b.problems, fmt.Sprintf(format, args...))
}

// Build validates spec and produces a Program. Every problem found is reported
// in a single error.
func Build(spec Spec) (*Program, error) {
	cm, err := cost.NewTableCostModel(spec.Hardware)
	if err != nil {
		return nil, err
	}
	b := &builder{
		spec: spec,
		program: &Program{
			Name:      spec.Name,
			Schedule:  &sim.Schedule{},
			CostModel: cm,
			byName:    make(map[string]*sim.Instruction),
		},
		specs: make(map[*sim.Instruction]InstructionSpec),
	}

	b.declare(spec.Computation, 1)
	b.resolveOperands()
	b.buildPlans()
	b.buildOutstanding()

	if len(b.problems) > 0 {
		return nil, fmt.Errorf("invalid program: %s", strings.Join(b.problems, "; "))
	}
	logrus.Debugf("program %q: %d instructions scheduled, %d plans", b.program.Name, b.program.Schedule.Len(), len(b.program.Plans))
	return b.program, nil
}

// declare creates instructions for specs, appending them to the schedule in
// execution order. A while node's condition and body are flattened before the
// while itself, with their trip counts multiplied by the loop's.
func (b *builder) declare(specs []InstructionSpec, tripCount int64) {
	for _, is := range specs {
		if is.Name == "" {
			b.problemf("instruction with opcode %q has no name", is.Opcode)
			continue
		}
		if _, dup := b.program.Instruction(is.Name); dup {
			b.problemf("duplicate instruction name %q", is.Name)
			continue
		}

		inst := &sim.Instruction{Name: is.Name, Opcode: sim.Opcode(is.Opcode)}
		if is.isWhile() {
			inst.Opcode = sim.OpWhile
		}
		if inst.Opcode == "" {
			b.problemf("instruction %q has no opcode", is.Name)
			continue
		}
		b.program.byName[is.Name] = inst
		b.program.Instructions = append(b.program.Instructions, inst)
		b.specs[inst] = is
		b.setCost(inst, is)

		if inst.Opcode == sim.OpWhile {
			loopTrips, ok := b.loopTripCount(is)
			if ok {
				b.declare(is.Condition, mulTripCount(tripCount, loopTrips))
				b.declare(is.Body, mulTripCount(tripCount, loopTrips))
			}
		}
		b.program.Schedule.Append(inst, tripCount)
	}
}

func (b *builder) loopTripCount(is InstructionSpec) (int64, bool) {
	if is.TripCount == nil {
		b.problemf("while %q has no trip_count", is.Name)
		return 0, false
	}
	if *is.TripCount < 0 {
		b.problemf("while %q: trip_count must be >= 0, got %d", is.Name, *is.TripCount)
		return 0, false
	}
	return *is.TripCount, true
}

// mulTripCount multiplies nested trip counts, saturating instead of overflowing.
func mulTripCount(outer, inner int64) int64 {
	if outer == 0 || inner == 0 {
		return 0
	}
	if outer > math.MaxInt64/inner {
		return math.MaxInt64
	}
	return outer * inner
}

func (b *builder) setCost(inst *sim.Instruction, is InstructionSpec) {
	if is.Flops == 0 && is.BytesAccessed == 0 && is.Elapsed == nil {
		return
	}
	err := b.program.CostModel.Set(inst, cost.InstructionCost{
		Flops:         is.Flops,
		BytesAccessed: is.BytesAccessed,
		Elapsed:       is.Elapsed,
	})
	if err != nil {
		b.problemf("%v", err)
	}
}

func (b *builder) resolveOperands() {
	for _, inst := range b.program.Instructions {
		is := b.specs[inst]
		for _, name := range is.Operands {
			operand, ok := b.program.Instruction(name)
			if !ok {
				b.problemf("instruction %q: unknown operand %q", inst.Name, name)
				continue
			}
			inst.Operands = append(inst.Operands, operand)
		}
		if inst.Opcode == sim.OpCopyDone {
			if start := inst.CopyStart(); start == nil || start.Opcode != sim.OpCopyStart {
				b.problemf("copy-done %q: first operand must be a copy-start", inst.Name)
			}
		}
	}
}

// lookup resolves name to an instruction with the wanted opcode.
func (b *builder) lookup(context, field, name string, want sim.Opcode) *sim.Instruction {
	if name == "" {
		b.problemf("%s: %s is required", context, field)
		return nil
	}
	inst, ok := b.program.Instruction(name)
	if !ok {
		b.problemf("%s: %s %q is not a declared instruction", context, field, name)
		return nil
	}
	if inst.Opcode != want {
		b.problemf("%s: %s %q is a %s, want %s", context, field, name, inst.Opcode, want)
		return nil
	}
	return inst
}

func (b *builder) buildPlans() {
	if len(b.spec.Plans) == 0 {
		b.program.Plans = []sim.NamedPlan{{Name: DefaultPlanName}}
		return
	}
	seen := make(map[string]bool)
	for i, ps := range b.spec.Plans {
		if ps.Name == "" {
			b.problemf("plans[%d] has no name", i)
			continue
		}
		if seen[ps.Name] {
			b.problemf("duplicate plan name %q", ps.Name)
			continue
		}
		seen[ps.Name] = true

		plan := sim.NamedPlan{Name: ps.Name, Allocations: make(sim.AllocationSequence, 0, len(ps.Allocations))}
		for j, as := range ps.Allocations {
			if a, ok := b.buildAllocation(fmt.Sprintf("plan %q allocations[%d]", ps.Name, j), as); ok {
				plan.Allocations = append(plan.Allocations, a)
			}
		}
		b.program.Plans = append(b.program.Plans, plan)
	}
}

func (b *builder) buildAllocation(context string, as AllocationSpec) (sim.Allocation, bool) {
	space, err := sim.ParseMemorySpace(as.MemorySpace)
	if err != nil {
		b.problemf("%s: %v", context, err)
		return sim.Allocation{}, false
	}
	a := sim.Allocation{
		Kind:        sim.AllocationKind(as.Kind),
		Value:       as.Value,
		MemorySpace: space,
		SizeBytes:   as.SizeBytes,
	}
	switch a.Kind {
	case sim.AllocationPinned:
		if as.CopyStart != "" || as.CopyDone != "" {
			b.problemf("%s: pinned allocation must not name copy instructions", context)
			return sim.Allocation{}, false
		}
	case sim.AllocationCopy:
		if as.SizeBytes < 0 {
			b.problemf("%s: size_bytes must be >= 0, got %d", context, as.SizeBytes)
			return sim.Allocation{}, false
		}
		a.CopyStart = b.lookup(context, "copy_start", as.CopyStart, sim.OpCopyStart)
		a.CopyDone = b.lookup(context, "copy_done", as.CopyDone, sim.OpCopyDone)
		if a.CopyStart == nil || a.CopyDone == nil {
			return sim.Allocation{}, false
		}
		if a.CopyDone.CopyStart() != a.CopyStart {
			b.problemf("%s: copy_done %q does not complete copy_start %q", context, as.CopyDone, as.CopyStart)
			return sim.Allocation{}, false
		}
	default:
		b.problemf("%s: unknown allocation kind %q (valid: pinned, copy)", context, as.Kind)
		return sim.Allocation{}, false
	}
	return a, true
}

func (b *builder) buildOutstanding() {
	seen := make(map[*sim.Instruction]bool)
	convert := func(queue string, specs []OutstandingCopySpec) []sim.OutstandingAsyncCopy {
		var out []sim.OutstandingAsyncCopy
		for i, oc := range specs {
			context := fmt.Sprintf("outstanding.%s[%d]", queue, i)
			start := b.lookup(context, "copy_start", oc.CopyStart, sim.OpCopyStart)
			if start == nil {
				continue
			}
			if seen[start] {
				b.problemf("%s: copy %q is already outstanding", context, oc.CopyStart)
				continue
			}
			if oc.RemainingBytes < 0 || math.IsNaN(oc.RemainingBytes) || math.IsInf(oc.RemainingBytes, 0) {
				b.problemf("%s: remaining_bytes must be >= 0 and finite, got %v", context, oc.RemainingBytes)
				continue
			}
			seen[start] = true
			out = append(out, sim.OutstandingAsyncCopy{CopyStart: start, RemainingBytes: oc.RemainingBytes})
		}
		return out
	}
	b.program.ReadDefaultSeed = convert("read_default", b.spec.Outstanding.ReadDefault)
	b.program.WriteDefaultSeed = convert("write_default", b.spec.Outstanding.WriteDefault)
}
