// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/tiersim/sim/trace"
)

// RuntimeSimulator estimates the elapsed time of a scheduled program under a
// fixed memory-placement plan. It owns the two default-memory copy queues and
// reads costs from a CostModel supplied at construction.
//
// The default-memory interface is one shared channel: a direction with
// outstanding work gets half of DefaultMemBandwidth while the opposite
// direction also has work, and all of it otherwise.
//
// A RuntimeSimulator is single-threaded and meant for one estimate run.
type RuntimeSimulator struct {
	costModel    CostModel
	bandwidth    float64
	readDefault  *CopyQueue
	writeDefault *CopyQueue
	trace        *trace.EstimateTrace
}

// NewRuntimeSimulator creates a simulator with empty copy queues.
// Returns an error if the cost model is nil or its bandwidth is not a valid positive number.
func NewRuntimeSimulator(costModel CostModel) (*RuntimeSimulator, error) {
	return NewRuntimeSimulatorWithQueues(costModel, nil, nil)
}

// NewRuntimeSimulatorWithQueues creates a simulator whose queues are pre-seeded
// with outstanding copies, for resuming a partially simulated schedule.
// Both seeds are copied in order.
func NewRuntimeSimulatorWithQueues(costModel CostModel, readDefault, writeDefault []OutstandingAsyncCopy) (*RuntimeSimulator, error) {
	if costModel == nil {
		return nil, fmt.Errorf("runtime simulator: cost model must not be nil")
	}
	bw := costModel.DefaultMemBandwidth()
	if bw <= 0 || math.IsNaN(bw) || math.IsInf(bw, 0) {
		return nil, fmt.Errorf("runtime simulator: default memory bandwidth must be a valid positive number, got %v", bw)
	}
	for _, seed := range [][]OutstandingAsyncCopy{readDefault, writeDefault} {
		for _, c := range seed {
			if c.CopyStart == nil {
				return nil, fmt.Errorf("runtime simulator: outstanding copy has nil copy-start")
			}
			if c.RemainingBytes < 0 || math.IsNaN(c.RemainingBytes) || math.IsInf(c.RemainingBytes, 0) {
				return nil, fmt.Errorf("runtime simulator: outstanding copy %s has invalid remaining bytes %v", c.CopyStart.Name, c.RemainingBytes)
			}
		}
	}
	return &RuntimeSimulator{
		costModel:    costModel,
		bandwidth:    bw,
		readDefault:  NewCopyQueue(readDefault),
		writeDefault: NewCopyQueue(writeDefault),
	}, nil
}

// SetTrace attaches a trace that receives one record per scheduled instruction
// processed by ComputeEstimatedElapsedTime. A nil trace disables recording.
func (s *RuntimeSimulator) SetTrace(t *trace.EstimateTrace) {
	s.trace = t
}

// DefaultMemBandwidth returns the total default-memory bandwidth used by the contention model.
func (s *RuntimeSimulator) DefaultMemBandwidth() float64 {
	return s.bandwidth
}

func (s *RuntimeSimulator) queue(d Direction) *CopyQueue {
	if d == DirectionReadDefault {
		return s.readDefault
	}
	return s.writeDefault
}

// OutstandingReadDefaultQueue returns a snapshot of copies reading from default memory.
func (s *RuntimeSimulator) OutstandingReadDefaultQueue() []OutstandingAsyncCopy {
	return s.readDefault.Items()
}

// OutstandingWriteDefaultQueue returns a snapshot of copies writing to default memory.
func (s *RuntimeSimulator) OutstandingWriteDefaultQueue() []OutstandingAsyncCopy {
	return s.writeDefault.Items()
}

// OutstandingBytes returns the remaining bytes summed over both queues.
func (s *RuntimeSimulator) OutstandingBytes() float64 {
	return s.readDefault.TotalBytes() + s.writeDefault.TotalBytes()
}

// IssueAsyncCopy enqueues a copy of sizeBytes issued by copyStart in direction d.
// A copy-start that is already outstanding (for example from a pre-seeded queue)
// is not enqueued twice. Reports whether the copy was enqueued.
func (s *RuntimeSimulator) IssueAsyncCopy(d Direction, copyStart *Instruction, sizeBytes float64) bool {
	if _, _, ok := s.FindOutstanding(copyStart); ok {
		logrus.Debugf("copy %s already outstanding; not re-issued", copyStart.Name)
		return false
	}
	s.queue(d).Enqueue(OutstandingAsyncCopy{CopyStart: copyStart, RemainingBytes: sizeBytes})
	logrus.Debugf("issued copy %s: %v bytes %s", copyStart.Name, sizeBytes, d)
	return true
}

// FindOutstanding searches both queues for the copy issued by copyStart.
func (s *RuntimeSimulator) FindOutstanding(copyStart *Instruction) (Direction, OutstandingAsyncCopy, bool) {
	for _, d := range []Direction{DirectionReadDefault, DirectionWriteDefault} {
		q := s.queue(d)
		if i, ok := q.Find(copyStart); ok {
			return d, q.queue[i], true
		}
	}
	return 0, OutstandingAsyncCopy{}, false
}

// copyKey returns the instruction an outstanding copy is keyed by:
// the copy-start operand of a copy-done, or the instruction itself.
func copyKey(inst *Instruction) *Instruction {
	if start := inst.CopyStart(); start != nil {
		return start
	}
	return inst
}

// SimulateAsyncCopyDone returns the time spent waiting for the async copy
// completed by inst (a copy-done, or the copy-start itself) and updates both queues.
//
// The copy drains at its fair share of default-memory bandwidth. The opposite
// direction contends only while one of its copies has bytes left; copies drained
// to zero but still queued do not. While it does, the first opposite copy with
// bytes left drains at the same per-direction rate, clamped at zero and left queued. Copies queued ahead of the target in its own
// direction are drained first (FIFO). Returns 0 if the copy is not outstanding,
// which makes repeated completion signals harmless.
func (s *RuntimeSimulator) SimulateAsyncCopyDone(inst *Instruction) float64 {
	elapsed, _ := s.simulateAsyncCopyDone(inst)
	return elapsed
}

func (s *RuntimeSimulator) simulateAsyncCopyDone(inst *Instruction) (elapsed float64, contended bool) {
	key := copyKey(inst)
	target, _, ok := s.FindOutstanding(key)
	if !ok {
		logrus.Debugf("copy %s already completed", key.Name)
		return 0, false
	}
	targetQ := s.queue(target)
	otherQ := s.queue(target.Opposite())

	activeDirections := 1.0
	if otherQ.hasPendingBytes() {
		activeDirections = 2
		contended = true
	}
	effectiveBandwidth := s.bandwidth / activeDirections

	i, _ := targetQ.Find(key)
	elapsed = targetQ.bytesThrough(i) / effectiveBandwidth

	if contended {
		otherQ.drainHead(elapsed * effectiveBandwidth)
	}
	targetQ.drainBefore(i)
	targetQ.Remove(key)

	logrus.Debugf("completed copy %s (%s) in %v at %v bytes/unit; read-default=%v write-default=%v",
		key.Name, target, elapsed, effectiveBandwidth, s.readDefault, s.writeDefault)
	return elapsed, contended
}

// ComputeEstimatedElapsedTime walks the schedule once and returns the total
// estimated elapsed time under the given allocation plan.
//
// Plain instructions cost their compute time × trip count. A copy-start named
// by a copy allocation enqueues the copy and costs nothing. A copy-done named by
// a copy allocation, or whose copy is already outstanding, costs its simulated
// transfer time, independent of trip count.
func (s *RuntimeSimulator) ComputeEstimatedElapsedTime(schedule *Schedule, allocations AllocationSequence) float64 {
	copies := indexCopies(allocations)
	total := 0.0

	for _, entry := range schedule.Entries() {
		inst := entry.Instruction
		record := trace.EstimateRecord{
			Instruction: inst.Name,
			Opcode:      string(inst.Opcode),
			TripCount:   entry.TripCount,
		}

		alloc, issues := copies.byStart[inst]
		_, completes := copies.byDone[inst]
		if !completes && inst.IsCopyDone() {
			_, _, completes = s.FindOutstanding(copyKey(inst))
		}

		switch {
		case inst.IsCopyStart() && issues:
			d := alloc.Direction()
			s.IssueAsyncCopy(d, inst, float64(alloc.SizeBytes))
			record.Kind = trace.KindCopyIssue
			record.Direction = d.String()
		case inst.IsCopyDone() && completes:
			d, _, _ := s.FindOutstanding(copyKey(inst))
			elapsed, contended := s.simulateAsyncCopyDone(inst)
			total += elapsed
			record.Kind = trace.KindCopyDone
			record.Elapsed = elapsed
			record.Contended = contended
			if elapsed > 0 || contended {
				record.Direction = d.String()
			}
		default:
			elapsed := s.costModel.InstructionElapsed(inst) * float64(entry.TripCount)
			total += elapsed
			record.Kind = trace.KindCompute
			record.Elapsed = elapsed
		}

		if s.trace != nil {
			record.ReadDefaultBytes = s.readDefault.TotalBytes()
			record.WriteDefaultBytes = s.writeDefault.TotalBytes()
			s.trace.Record(record)
		}
	}

	logrus.Debugf("estimated elapsed time %v over %d instructions", total, schedule.Len())
	return total
}
