package sim

import "fmt"

// MemorySpace identifies a memory tier.
type MemorySpace int

const (
	MemorySpaceDefault   MemorySpace = iota // large, slow tier holding data by default
	MemorySpaceAlternate                    // small, fast tier chosen by the planning pass
)

func (m MemorySpace) String() string {
	switch m {
	case MemorySpaceDefault:
		return "default"
	case MemorySpaceAlternate:
		return "alternate"
	default:
		return fmt.Sprintf("MemorySpace(%d)", int(m))
	}
}

// ParseMemorySpace converts a config string into a MemorySpace.
func ParseMemorySpace(s string) (MemorySpace, error) {
	switch s {
	case "default":
		return MemorySpaceDefault, nil
	case "alternate":
		return MemorySpaceAlternate, nil
	default:
		return 0, fmt.Errorf("unknown memory space %q (valid: default, alternate)", s)
	}
}

// AllocationKind distinguishes values that stay put from values moved by an async copy.
type AllocationKind string

const (
	AllocationPinned AllocationKind = "pinned"
	AllocationCopy   AllocationKind = "copy"
)

// Allocation records where the planning pass placed a value.
// Copy allocations additionally name the async copy that moves the value
// into MemorySpace; pinned allocations leave CopyStart/CopyDone nil.
type Allocation struct {
	Kind        AllocationKind
	Value       string      // name of the placed value
	MemorySpace MemorySpace // placement (destination for copy allocations)
	SizeBytes   int64       // bytes moved by the copy
	CopyStart   *Instruction
	CopyDone    *Instruction
}

// Direction returns the default-memory direction of a copy allocation:
// copying into alternate memory reads default memory, copying into default memory writes it.
func (a Allocation) Direction() Direction {
	if a.MemorySpace == MemorySpaceAlternate {
		return DirectionReadDefault
	}
	return DirectionWriteDefault
}

// AllocationSequence is the ordered output of the planning pass.
// An empty sequence means the program has no cross-tier traffic.
type AllocationSequence []Allocation

// copyIndex maps copy-start and copy-done instructions to their copy allocation.
type copyIndex struct {
	byStart map[*Instruction]Allocation
	byDone  map[*Instruction]Allocation
}

func indexCopies(allocations AllocationSequence) copyIndex {
	idx := copyIndex{
		byStart: make(map[*Instruction]Allocation),
		byDone:  make(map[*Instruction]Allocation),
	}
	for _, a := range allocations {
		if a.Kind != AllocationCopy {
			continue
		}
		if a.CopyStart != nil {
			idx.byStart[a.CopyStart] = a
		}
		if a.CopyDone != nil {
			idx.byDone[a.CopyDone] = a
		}
	}
	return idx
}
