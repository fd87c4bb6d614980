package sim

import "fmt"

// ScheduleEntry is one instruction in linear execution order.
// TripCount is the product of the trip counts of every loop enclosing the
// instruction (1 outside loops, 0 inside a loop that never runs).
type ScheduleEntry struct {
	Instruction *Instruction
	TripCount   int64
}

// Schedule is a linearized, loop-aware execution order produced by the
// schedule analysis. The simulator walks it exactly once.
type Schedule struct {
	entries []ScheduleEntry
}

// NewSchedule builds a schedule from entries in execution order.
// Panics on a nil instruction or negative trip count.
func NewSchedule(entries []ScheduleEntry) *Schedule {
	s := &Schedule{}
	for _, e := range entries {
		s.Append(e.Instruction, e.TripCount)
	}
	return s
}

// Append adds an instruction to the end of the schedule.
func (s *Schedule) Append(inst *Instruction, tripCount int64) {
	if inst == nil {
		panic("Schedule.Append: instruction must not be nil")
	}
	if tripCount < 0 {
		panic(fmt.Sprintf("Schedule.Append: trip count for %s must be >= 0, got %d", inst.Name, tripCount))
	}
	s.entries = append(s.entries, ScheduleEntry{Instruction: inst, TripCount: tripCount})
}

// Entries returns the schedule in execution order.
// The returned slice is the schedule's internal storage and MUST NOT be modified.
func (s *Schedule) Entries() []ScheduleEntry {
	if s == nil {
		return nil
	}
	return s.entries
}

// Len returns the number of scheduled instructions.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
