package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/tiersim/sim/trace"
)

func TestNewRuntimeSimulator_NilCostModel_ReturnsError(t *testing.T) {
	_, err := NewRuntimeSimulator(nil)
	assert.Error(t, err)
}

func TestNewRuntimeSimulator_InvalidBandwidth_ReturnsError(t *testing.T) {
	for _, bw := range []float64{0, -1} {
		_, err := NewRuntimeSimulator(&stubCostModel{bandwidth: bw})
		assert.Error(t, err, "bandwidth %v", bw)
	}
}

func TestNewRuntimeSimulatorWithQueues_NegativeSeed_ReturnsError(t *testing.T) {
	start := &Instruction{Name: "cs", Opcode: OpCopyStart}
	_, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{{CopyStart: start, RemainingBytes: -4}}, nil)
	assert.ErrorContains(t, err, "cs")
}

func TestNewRuntimeSimulator_StartsEmpty(t *testing.T) {
	s, err := NewRuntimeSimulator(unitCostModel())
	require.NoError(t, err)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
	assert.Equal(t, 1.0, s.DefaultMemBandwidth())
}

// TestSimulateAsyncCopyDone_FullBandwidth: a lone read uses all of the bandwidth.
func TestSimulateAsyncCopyDone_FullBandwidth(t *testing.T) {
	// GIVEN a 512-byte read-default copy and nothing writing default memory
	p := newSharedBandwidthProgram()
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{{CopyStart: p.start1, RemainingBytes: 512}}, nil)
	require.NoError(t, err)

	// WHEN copy-done.1 is simulated
	elapsed := s.SimulateAsyncCopyDone(p.done1)

	// THEN it takes 512 / 1 and both queues are empty
	assert.Equal(t, 512.0, elapsed)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
}

// TestSimulateAsyncCopyDone_AlreadyCompleted: a second completion is free and changes nothing.
func TestSimulateAsyncCopyDone_AlreadyCompleted(t *testing.T) {
	p := newSharedBandwidthProgram()
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{{CopyStart: p.start1, RemainingBytes: 512}}, nil)
	require.NoError(t, err)

	first := s.SimulateAsyncCopyDone(p.done1)
	assert.Equal(t, 512.0, first)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
	assert.Empty(t, s.OutstandingWriteDefaultQueue())

	second := s.SimulateAsyncCopyDone(p.done1)
	assert.Equal(t, 0.0, second)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
}

func TestSimulateAsyncCopyDone_NeverIssued_ReturnsZero(t *testing.T) {
	// GIVEN a pre-seeded simulator
	p := newSharedBandwidthProgram()
	s, err := p.seeded(unitCostModel())
	require.NoError(t, err)
	stranger := &Instruction{Name: "copy-start.9", Opcode: OpCopyStart}
	_, strangerDone := copyPair("x", "copy-done.9", stranger)

	// WHEN completion is signaled for a copy that was never enqueued
	elapsed := s.SimulateAsyncCopyDone(strangerDone)

	// THEN it behaves like an already-completed copy
	assert.Equal(t, 0.0, elapsed)
	assert.Len(t, s.OutstandingReadDefaultQueue(), 1)
	assert.Len(t, s.OutstandingWriteDefaultQueue(), 1)
	assert.Equal(t, 640.0, s.OutstandingBytes())
}

// TestSimulateAsyncCopyDone_SharedBandwidth: a write overlapping a read gets half the bandwidth.
func TestSimulateAsyncCopyDone_SharedBandwidth(t *testing.T) {
	// GIVEN a 512-byte read and a 128-byte write outstanding
	p := newSharedBandwidthProgram()
	s, err := p.seeded(unitCostModel())
	require.NoError(t, err)

	// WHEN copy-done.2 (the write) is simulated
	elapsed := s.SimulateAsyncCopyDone(p.done2)

	// THEN it takes 128 / 0.5 = 256
	assert.Equal(t, 256.0, elapsed)
	// AND the write queue is empty
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
	// AND the read drained 0.5 * 256 = 128 bytes in parallel
	assert.Equal(t,
		[]OutstandingAsyncCopy{{CopyStart: p.start1, RemainingBytes: 384}},
		s.OutstandingReadDefaultQueue())
}

// TestSimulateAsyncCopyDone_TransferPartialProcess: the partially drained read then runs alone.
func TestSimulateAsyncCopyDone_TransferPartialProcess(t *testing.T) {
	p := newSharedBandwidthProgram()
	s, err := p.seeded(unitCostModel())
	require.NoError(t, err)

	// WHEN copy-done.2 then copy-done.1 are simulated
	done2 := s.SimulateAsyncCopyDone(p.done2)
	require.Equal(t, 256.0, done2)
	require.Equal(t,
		[]OutstandingAsyncCopy{{CopyStart: p.start1, RemainingBytes: 384}},
		s.OutstandingReadDefaultQueue())
	require.Empty(t, s.OutstandingWriteDefaultQueue())

	done1 := s.SimulateAsyncCopyDone(p.done1)

	// THEN the read is the sole occupant: 384 / 1
	assert.Equal(t, 384.0, done1)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
}

func TestSimulateAsyncCopyDone_OppositeHeadClampedAtZero_NotRemoved(t *testing.T) {
	// GIVEN a 512-byte read and a 100-byte write
	p := newSharedBandwidthProgram()
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{{CopyStart: p.start1, RemainingBytes: 512}},
		[]OutstandingAsyncCopy{{CopyStart: p.start2, RemainingBytes: 100}},
	)
	require.NoError(t, err)

	// WHEN the read completes first (512 / 0.5 = 1024)
	elapsed := s.SimulateAsyncCopyDone(p.done1)

	// THEN the write would have drained 512 bytes; it is clamped at zero but stays queued
	assert.Equal(t, 1024.0, elapsed)
	assert.Equal(t,
		[]OutstandingAsyncCopy{{CopyStart: p.start2, RemainingBytes: 0}},
		s.OutstandingWriteDefaultQueue())

	// AND its own completion costs nothing and empties the queue
	assert.Equal(t, 0.0, s.SimulateAsyncCopyDone(p.done2))
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
}

func TestSimulateAsyncCopyDone_AcceptsCopyStartDirectly(t *testing.T) {
	p := newSharedBandwidthProgram()
	s, err := p.seeded(&stubCostModel{bandwidth: 4})
	require.NoError(t, err)

	// 128 bytes at 4/2 per unit
	assert.Equal(t, 64.0, s.SimulateAsyncCopyDone(p.start2))
}

func TestSimulateAsyncCopyDone_NonUnitBandwidth(t *testing.T) {
	// GIVEN bandwidth 8 and the shared read/write setup
	p := newSharedBandwidthProgram()
	s, err := p.seeded(&stubCostModel{bandwidth: 8})
	require.NoError(t, err)

	// WHEN the write completes: 128 / 4 = 32, read drains 4 * 32 = 128
	assert.Equal(t, 32.0, s.SimulateAsyncCopyDone(p.done2))
	assert.Equal(t, 384.0, s.OutstandingReadDefaultQueue()[0].RemainingBytes)

	// THEN the read completes alone: 384 / 8 = 48
	assert.Equal(t, 48.0, s.SimulateAsyncCopyDone(p.done1))
}

// TestSimulateAsyncCopyDone_ConservesBytes checks that outstanding bytes drop by
// exactly the bytes transferred by every active direction during each completion.
func TestSimulateAsyncCopyDone_ConservesBytes(t *testing.T) {
	p := newSharedBandwidthProgram()
	s, err := p.seeded(&stubCostModel{bandwidth: 2})
	require.NoError(t, err)

	before := s.OutstandingBytes()
	elapsed := s.SimulateAsyncCopyDone(p.done2)
	// two active directions, each at 2/2 = 1 byte per unit
	assert.Equal(t, before-2*elapsed*1, s.OutstandingBytes())

	before = s.OutstandingBytes()
	elapsed = s.SimulateAsyncCopyDone(p.done1)
	// one active direction at 2 bytes per unit
	assert.Equal(t, before-elapsed*2, s.OutstandingBytes())
	assert.Equal(t, 0.0, s.OutstandingBytes())
}

// TestSimulateAsyncCopyDone_SameDirectionIsFIFO: a second copy in the same direction
// gets no bandwidth until the copy ahead of it drains.
func TestSimulateAsyncCopyDone_SameDirectionIsFIFO(t *testing.T) {
	// GIVEN two reads of 100 and 50 bytes queued in that order
	v := &Instruction{Name: "v", Opcode: "parameter"}
	startA, doneA := copyPair("copy-start.a", "copy-done.a", v)
	startB, doneB := copyPair("copy-start.b", "copy-done.b", v)
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 100},
			{CopyStart: startB, RemainingBytes: 50},
		}, nil)
	require.NoError(t, err)

	// WHEN the later copy completes first
	elapsed := s.SimulateAsyncCopyDone(doneB)

	// THEN it waits for the earlier copy too: (100 + 50) / 1
	assert.Equal(t, 150.0, elapsed)
	// AND the earlier copy is drained but still queued
	assert.Equal(t,
		[]OutstandingAsyncCopy{{CopyStart: startA, RemainingBytes: 0}},
		s.OutstandingReadDefaultQueue())

	// AND its own completion is then free
	assert.Equal(t, 0.0, s.SimulateAsyncCopyDone(doneA))
	assert.Empty(t, s.OutstandingReadDefaultQueue())
}

func TestSimulateAsyncCopyDone_SameDirectionHeadFirst_LeavesSecondUntouched(t *testing.T) {
	v := &Instruction{Name: "v", Opcode: "parameter"}
	startA, doneA := copyPair("copy-start.a", "copy-done.a", v)
	startB, _ := copyPair("copy-start.b", "copy-done.b", v)
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 100},
			{CopyStart: startB, RemainingBytes: 50},
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, 100.0, s.SimulateAsyncCopyDone(doneA))
	assert.Equal(t,
		[]OutstandingAsyncCopy{{CopyStart: startB, RemainingBytes: 50}},
		s.OutstandingReadDefaultQueue())
}

func TestSimulateAsyncCopyDone_OnlyOppositeHeadDrains(t *testing.T) {
	// GIVEN one write and two queued reads
	v := &Instruction{Name: "v", Opcode: "parameter"}
	startA, _ := copyPair("copy-start.a", "copy-done.a", v)
	startB, _ := copyPair("copy-start.b", "copy-done.b", v)
	startW, doneW := copyPair("copy-start.w", "copy-done.w", v)
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 100},
			{CopyStart: startB, RemainingBytes: 50},
		},
		[]OutstandingAsyncCopy{{CopyStart: startW, RemainingBytes: 20}},
	)
	require.NoError(t, err)

	// WHEN the write completes: 20 / 0.5 = 40
	assert.Equal(t, 40.0, s.SimulateAsyncCopyDone(doneW))

	// THEN only the head read drained 0.5 * 40 = 20 bytes
	assert.Equal(t,
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 80},
			{CopyStart: startB, RemainingBytes: 50},
		},
		s.OutstandingReadDefaultQueue())
}

// TestSimulateAsyncCopyDone_DrainedOppositeCopy_DoesNotContend: a copy clamped to
// zero stays queued until its own completion, but it no longer halves the bandwidth.
func TestSimulateAsyncCopyDone_DrainedOppositeCopy_DoesNotContend(t *testing.T) {
	// GIVEN a 10-byte read and a 100-byte write
	v := &Instruction{Name: "v", Opcode: "parameter"}
	startR, doneR := copyPair("copy-start.r", "copy-done.r", v)
	startW1, doneW1 := copyPair("copy-start.w1", "copy-done.w1", v)
	startW2, doneW2 := copyPair("copy-start.w2", "copy-done.w2", v)
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{{CopyStart: startR, RemainingBytes: 10}},
		[]OutstandingAsyncCopy{{CopyStart: startW1, RemainingBytes: 100}},
	)
	require.NoError(t, err)

	// WHEN the first write completes: 100 / 0.5 = 200, the read is clamped at zero
	assert.Equal(t, 200.0, s.SimulateAsyncCopyDone(doneW1))
	assert.Equal(t,
		[]OutstandingAsyncCopy{{CopyStart: startR, RemainingBytes: 0}},
		s.OutstandingReadDefaultQueue())

	// AND a second write is issued and completed
	require.True(t, s.IssueAsyncCopy(DirectionWriteDefault, startW2, 100))
	elapsed, contended := s.simulateAsyncCopyDone(doneW2)

	// THEN it runs at full bandwidth
	assert.Equal(t, 100.0, elapsed)
	assert.False(t, contended)

	// AND the drained read is still queued until its own completion
	assert.Equal(t, 1, len(s.OutstandingReadDefaultQueue()))
	assert.Equal(t, 0.0, s.SimulateAsyncCopyDone(doneR))
	assert.Empty(t, s.OutstandingReadDefaultQueue())
}

func TestSimulateAsyncCopyDone_FIFODrainedCopy_DoesNotContend(t *testing.T) {
	// GIVEN two reads of 100 and 50 bytes
	v := &Instruction{Name: "v", Opcode: "parameter"}
	startA, doneA := copyPair("copy-start.a", "copy-done.a", v)
	startB, doneB := copyPair("copy-start.b", "copy-done.b", v)
	startW, doneW := copyPair("copy-start.w", "copy-done.w", v)
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 100},
			{CopyStart: startB, RemainingBytes: 50},
		}, nil)
	require.NoError(t, err)

	// WHEN the later read completes, zeroing the earlier one
	assert.Equal(t, 150.0, s.SimulateAsyncCopyDone(doneB))

	// THEN a write issued afterwards does not share bandwidth with it
	require.True(t, s.IssueAsyncCopy(DirectionWriteDefault, startW, 20))
	assert.Equal(t, 20.0, s.SimulateAsyncCopyDone(doneW))
	assert.Equal(t, 0.0, s.SimulateAsyncCopyDone(doneA))
}

func TestSimulateAsyncCopyDone_OppositeDrainSkipsZeroedHead(t *testing.T) {
	// GIVEN reads of 10 and 50 bytes and a 100-byte write
	v := &Instruction{Name: "v", Opcode: "parameter"}
	startA, _ := copyPair("copy-start.a", "copy-done.a", v)
	startB, _ := copyPair("copy-start.b", "copy-done.b", v)
	startW1, doneW1 := copyPair("copy-start.w1", "copy-done.w1", v)
	startW2, doneW2 := copyPair("copy-start.w2", "copy-done.w2", v)
	s, err := NewRuntimeSimulatorWithQueues(unitCostModel(),
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 10},
			{CopyStart: startB, RemainingBytes: 50},
		},
		[]OutstandingAsyncCopy{{CopyStart: startW1, RemainingBytes: 100}},
	)
	require.NoError(t, err)

	// WHEN the first write completes, only the head read drains (clamped at zero)
	assert.Equal(t, 200.0, s.SimulateAsyncCopyDone(doneW1))

	// AND a second write completes while the second read still has bytes left
	require.True(t, s.IssueAsyncCopy(DirectionWriteDefault, startW2, 20))
	elapsed, contended := s.simulateAsyncCopyDone(doneW2)

	// THEN it shares bandwidth: 20 / 0.5 = 40, and the second read drains 20 bytes
	assert.Equal(t, 40.0, elapsed)
	assert.True(t, contended)
	assert.Equal(t,
		[]OutstandingAsyncCopy{
			{CopyStart: startA, RemainingBytes: 0},
			{CopyStart: startB, RemainingBytes: 30},
		},
		s.OutstandingReadDefaultQueue())
}

// TestComputeEstimatedElapsedTime_SingleLayerNestedLoop: 42 iterations × 2 compute units.
func TestComputeEstimatedElapsedTime_SingleLayerNestedLoop(t *testing.T) {
	// GIVEN a while loop whose body and condition each cost 1 per iteration
	increment := &Instruction{Name: "increment", Opcode: "add"}
	greater := &Instruction{Name: "greater", Opcode: "compare"}
	count := &Instruction{Name: "count", Opcode: "get-tuple-element"}
	loop := &Instruction{Name: "while", Opcode: OpWhile}
	cm := &stubCostModel{bandwidth: 1, elapsed: map[string]float64{"increment": 1, "greater": 1}}
	schedule := NewSchedule([]ScheduleEntry{
		{Instruction: &Instruction{Name: "constant.0", Opcode: "constant"}, TripCount: 1},
		{Instruction: count, TripCount: 42},
		{Instruction: increment, TripCount: 42},
		{Instruction: greater, TripCount: 42},
		{Instruction: loop, TripCount: 1},
	})
	s, err := NewRuntimeSimulator(cm)
	require.NoError(t, err)

	// WHEN estimated with an empty allocation sequence
	elapsed := s.ComputeEstimatedElapsedTime(schedule, nil)

	// THEN the total is 84
	assert.Equal(t, 84.0, elapsed)
}

func TestComputeEstimatedElapsedTime_EmptySchedule_IsZero(t *testing.T) {
	s, err := NewRuntimeSimulator(unitCostModel())
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.ComputeEstimatedElapsedTime(NewSchedule(nil), nil))
}

func TestComputeEstimatedElapsedTime_ZeroTripCountLoop_CostsNothing(t *testing.T) {
	body := &Instruction{Name: "body", Opcode: "add"}
	cm := &stubCostModel{bandwidth: 1, elapsed: map[string]float64{"body": 7}}
	s, err := NewRuntimeSimulator(cm)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.ComputeEstimatedElapsedTime(
		NewSchedule([]ScheduleEntry{{Instruction: body, TripCount: 0}}), nil))
}

func sharedBandwidthSchedule(p sharedBandwidthProgram) *Schedule {
	return NewSchedule([]ScheduleEntry{
		{Instruction: p.param0, TripCount: 1},
		{Instruction: p.param1, TripCount: 1},
		{Instruction: p.start1, TripCount: 1},
		{Instruction: p.start2, TripCount: 1},
		{Instruction: p.done2, TripCount: 1},
		{Instruction: p.done1, TripCount: 1},
	})
}

func sharedBandwidthPlan(p sharedBandwidthProgram) AllocationSequence {
	return AllocationSequence{
		{Kind: AllocationCopy, Value: "param_0", MemorySpace: MemorySpaceAlternate, SizeBytes: 512, CopyStart: p.start1, CopyDone: p.done1},
		{Kind: AllocationCopy, Value: "param_1", MemorySpace: MemorySpaceDefault, SizeBytes: 128, CopyStart: p.start2, CopyDone: p.done2},
	}
}

func TestComputeEstimatedElapsedTime_CopiesFromPlan(t *testing.T) {
	// GIVEN an empty simulator and a plan that prefetches param_0 and evicts param_1
	p := newSharedBandwidthProgram()
	s, err := NewRuntimeSimulator(unitCostModel())
	require.NoError(t, err)

	// WHEN the schedule is walked
	elapsed := s.ComputeEstimatedElapsedTime(sharedBandwidthSchedule(p), sharedBandwidthPlan(p))

	// THEN copy-done.2 costs 256 and copy-done.1 costs 384
	assert.Equal(t, 640.0, elapsed)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
	assert.Empty(t, s.OutstandingWriteDefaultQueue())
}

func TestComputeEstimatedElapsedTime_PreseededQueues_NotIssuedTwice(t *testing.T) {
	// GIVEN queues already holding both copies and a plan naming them again
	p := newSharedBandwidthProgram()
	s, err := p.seeded(unitCostModel())
	require.NoError(t, err)

	elapsed := s.ComputeEstimatedElapsedTime(sharedBandwidthSchedule(p), sharedBandwidthPlan(p))

	// THEN the result matches a fresh run: the copy-starts are not re-enqueued
	assert.Equal(t, 640.0, elapsed)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
}

func TestComputeEstimatedElapsedTime_ResumedFragment_CompletesOutstandingCopy(t *testing.T) {
	// GIVEN a schedule fragment containing only the copy-dones, an empty plan,
	// and queues seeded from an earlier fragment
	p := newSharedBandwidthProgram()
	s, err := p.seeded(unitCostModel())
	require.NoError(t, err)
	fragment := NewSchedule([]ScheduleEntry{
		{Instruction: p.done2, TripCount: 1},
		{Instruction: p.done1, TripCount: 1},
	})

	// THEN outstanding copies are still charged their transfer time
	assert.Equal(t, 640.0, s.ComputeEstimatedElapsedTime(fragment, nil))
}

func TestComputeEstimatedElapsedTime_UnplannedCopy_IsPlainCompute(t *testing.T) {
	// GIVEN a copy pair that no allocation references and nothing outstanding
	p := newSharedBandwidthProgram()
	cm := &stubCostModel{bandwidth: 1, elapsed: map[string]float64{"copy-start.1": 3, "copy-done.1": 5}}
	s, err := NewRuntimeSimulator(cm)
	require.NoError(t, err)

	elapsed := s.ComputeEstimatedElapsedTime(NewSchedule([]ScheduleEntry{
		{Instruction: p.start1, TripCount: 2},
		{Instruction: p.done1, TripCount: 2},
	}), AllocationSequence{{Kind: AllocationPinned, Value: "param_0", MemorySpace: MemorySpaceAlternate}})

	// THEN both are costed as ordinary instructions
	assert.Equal(t, 16.0, elapsed)
	assert.Empty(t, s.OutstandingReadDefaultQueue())
}

func TestComputeEstimatedElapsedTime_CopyDoneNotScaledByTripCount(t *testing.T) {
	p := newSharedBandwidthProgram()
	s, err := NewRuntimeSimulator(unitCostModel())
	require.NoError(t, err)

	elapsed := s.ComputeEstimatedElapsedTime(NewSchedule([]ScheduleEntry{
		{Instruction: p.start1, TripCount: 10},
		{Instruction: p.done1, TripCount: 10},
	}), sharedBandwidthPlan(p))

	assert.Equal(t, 512.0, elapsed)
}

func TestComputeEstimatedElapsedTime_MixedComputeAndCopies(t *testing.T) {
	// GIVEN compute overlapping nothing: compute is additive with transfer time
	p := newSharedBandwidthProgram()
	fusion := &Instruction{Name: "fusion", Opcode: "fusion"}
	cm := &stubCostModel{bandwidth: 1, elapsed: map[string]float64{"fusion": 10}}
	s, err := NewRuntimeSimulator(cm)
	require.NoError(t, err)

	elapsed := s.ComputeEstimatedElapsedTime(NewSchedule([]ScheduleEntry{
		{Instruction: p.start1, TripCount: 1},
		{Instruction: fusion, TripCount: 3},
		{Instruction: p.done1, TripCount: 1},
	}), sharedBandwidthPlan(p))

	assert.Equal(t, 30.0+512.0, elapsed)
}

func TestComputeEstimatedElapsedTime_Deterministic(t *testing.T) {
	p := newSharedBandwidthProgram()
	run := func() (float64, []OutstandingAsyncCopy) {
		s, err := NewRuntimeSimulator(&stubCostModel{bandwidth: 3})
		require.NoError(t, err)
		sched := NewSchedule([]ScheduleEntry{
			{Instruction: p.start1, TripCount: 1},
			{Instruction: p.start2, TripCount: 1},
			{Instruction: p.done2, TripCount: 1},
		})
		return s.ComputeEstimatedElapsedTime(sched, sharedBandwidthPlan(p)), s.OutstandingReadDefaultQueue()
	}
	e1, q1 := run()
	e2, q2 := run()
	assert.Equal(t, e1, e2)
	assert.Equal(t, q1, q2)
}

func TestComputeEstimatedElapsedTime_RecordsTrace(t *testing.T) {
	// GIVEN a simulator with a trace attached
	p := newSharedBandwidthProgram()
	s, err := NewRuntimeSimulator(unitCostModel())
	require.NoError(t, err)
	et := trace.NewEstimateTrace("evict-and-prefetch")
	s.SetTrace(et)

	// WHEN the schedule is walked
	total := s.ComputeEstimatedElapsedTime(sharedBandwidthSchedule(p), sharedBandwidthPlan(p))

	// THEN there is one record per instruction and the records sum to the total
	require.Len(t, et.Records, 6)
	assert.Equal(t, total, et.Total())

	issue := et.Records[2]
	assert.Equal(t, trace.KindCopyIssue, issue.Kind)
	assert.Equal(t, "read-default", issue.Direction)
	assert.Equal(t, 512.0, issue.ReadDefaultBytes)

	done2 := et.Records[4]
	assert.Equal(t, trace.KindCopyDone, done2.Kind)
	assert.Equal(t, 256.0, done2.Elapsed)
	assert.True(t, done2.Contended)
	assert.Equal(t, "write-default", done2.Direction)
	assert.Equal(t, 384.0, done2.ReadDefaultBytes)
	assert.Equal(t, 0.0, done2.WriteDefaultBytes)

	done1 := et.Records[5]
	assert.False(t, done1.Contended)
	assert.Equal(t, 384.0, done1.Elapsed)
}

func TestAllocation_Direction(t *testing.T) {
	assert.Equal(t, DirectionReadDefault, Allocation{MemorySpace: MemorySpaceAlternate}.Direction())
	assert.Equal(t, DirectionWriteDefault, Allocation{MemorySpace: MemorySpaceDefault}.Direction())
}

func TestInstruction_CopyStart(t *testing.T) {
	p := newSharedBandwidthProgram()
	assert.Same(t, p.start1, p.done1.CopyStart())
	assert.Nil(t, p.start1.CopyStart())
	assert.Nil(t, (&Instruction{Name: "orphan", Opcode: OpCopyDone}).CopyStart())
}
