// Implements the CopyQueue, which holds async copies that have been issued
// but whose completion has not been simulated yet. One queue exists per
// default-memory transfer direction.

package sim

import (
	"fmt"
	"strings"
)

// Direction identifies which way an async copy moves bytes across the
// default-memory interface.
type Direction int

const (
	// DirectionReadDefault copies data out of default memory (prefetch into alternate memory).
	DirectionReadDefault Direction = iota
	// DirectionWriteDefault copies data into default memory (eviction from alternate memory).
	DirectionWriteDefault
)

// Opposite returns the other transfer direction.
func (d Direction) Opposite() Direction {
	if d == DirectionReadDefault {
		return DirectionWriteDefault
	}
	return DirectionReadDefault
}

func (d Direction) String() string {
	switch d {
	case DirectionReadDefault:
		return "read-default"
	case DirectionWriteDefault:
		return "write-default"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// OutstandingAsyncCopy is a copy that has started but has not been fully drained.
// RemainingBytes only decreases and never goes below zero.
type OutstandingAsyncCopy struct {
	CopyStart      *Instruction // the copy-start that issued the transfer
	RemainingBytes float64      // bytes still to move over the default-memory interface
}

func (c OutstandingAsyncCopy) String() string {
	name := "<nil>"
	if c.CopyStart != nil {
		name = c.CopyStart.Name
	}
	return fmt.Sprintf("{%s: %v bytes}", name, c.RemainingBytes)
}

// CopyQueue is a FIFO of outstanding copies for one direction, in issue order.
// Only the first copy with bytes left receives bandwidth; later entries wait.
// Lookup is a linear identity scan: a handful of copies are in flight at once.
type CopyQueue struct {
	queue []OutstandingAsyncCopy
}

// NewCopyQueue creates a queue pre-seeded with the given copies, in order.
// The slice is copied; the caller keeps ownership of its argument.
func NewCopyQueue(seed []OutstandingAsyncCopy) *CopyQueue {
	q := &CopyQueue{}
	for _, c := range seed {
		q.Enqueue(c)
	}
	return q
}

// Enqueue appends a copy to the tail of the queue.
// Panics on a nil copy-start or negative byte count.
func (q *CopyQueue) Enqueue(c OutstandingAsyncCopy) {
	if c.CopyStart == nil {
		panic("CopyQueue.Enqueue: CopyStart must not be nil")
	}
	if c.RemainingBytes < 0 {
		panic(fmt.Sprintf("CopyQueue.Enqueue: RemainingBytes must be >= 0, got %v", c.RemainingBytes))
	}
	q.queue = append(q.queue, c)
}

// Len returns the number of outstanding copies.
func (q *CopyQueue) Len() int {
	return len(q.queue)
}

// IsEmpty reports whether no copy is outstanding in this direction.
func (q *CopyQueue) IsEmpty() bool {
	return len(q.queue) == 0
}

// Peek returns the head of the queue; ok is false if the queue is empty.
func (q *CopyQueue) Peek() (OutstandingAsyncCopy, bool) {
	if len(q.queue) == 0 {
		return OutstandingAsyncCopy{}, false
	}
	return q.queue[0], true
}

// Find returns the position of the copy issued by copyStart.
func (q *CopyQueue) Find(copyStart *Instruction) (int, bool) {
	for i, c := range q.queue {
		if c.CopyStart == copyStart {
			return i, true
		}
	}
	return -1, false
}

// Remove deletes the copy issued by copyStart. It is a no-op if the copy is absent,
// since completion may be signaled again for a copy that already finished.
func (q *CopyQueue) Remove(copyStart *Instruction) {
	i, ok := q.Find(copyStart)
	if !ok {
		return
	}
	q.queue = append(q.queue[:i], q.queue[i+1:]...)
}

// Items returns a snapshot of the queue contents in issue order.
// Mutating the returned slice does not affect the queue.
func (q *CopyQueue) Items() []OutstandingAsyncCopy {
	out := make([]OutstandingAsyncCopy, len(q.queue))
	copy(out, q.queue)
	return out
}

// TotalBytes returns the sum of remaining bytes over all queued copies.
func (q *CopyQueue) TotalBytes() float64 {
	total := 0.0
	for _, c := range q.queue {
		total += c.RemainingBytes
	}
	return total
}

// bytesThrough returns the remaining bytes of every copy up to and including index i.
func (q *CopyQueue) bytesThrough(i int) float64 {
	total := 0.0
	for _, c := range q.queue[:i+1] {
		total += c.RemainingBytes
	}
	return total
}

// drainBefore zeroes every copy ahead of index i; they stay queued until
// their own completion is simulated.
func (q *CopyQueue) drainBefore(i int) {
	for j := 0; j < i; j++ {
		q.queue[j].RemainingBytes = 0
	}
}

// hasPendingBytes reports whether any queued copy still has bytes to move.
// Copies drained to zero stay queued but no longer draw bandwidth.
func (q *CopyQueue) hasPendingBytes() bool {
	for _, c := range q.queue {
		if c.RemainingBytes > 0 {
			return true
		}
	}
	return false
}

// drainHead reduces the remaining bytes of the first copy that still has bytes
// to move by transferred, clamped at zero. Entries already drained to zero are
// skipped. Nothing is removed, even when the copy reaches zero.
func (q *CopyQueue) drainHead(transferred float64) {
	for i := range q.queue {
		if q.queue[i].RemainingBytes <= 0 {
			continue
		}
		remaining := q.queue[i].RemainingBytes - transferred
		if remaining < 0 {
			remaining = 0
		}
		q.queue[i].RemainingBytes = remaining
		return
	}
}

func (q *CopyQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(val.String())
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
