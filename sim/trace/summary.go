package trace

// TraceSummary aggregates statistics from an EstimateTrace.
type TraceSummary struct {
	Instructions         int
	ComputeElapsed       float64
	CopyElapsed          float64
	CopiesIssued         int
	CopiesCompleted      int     // copy-done records with non-zero transfer time
	ContendedCompletions int     // completions that shared bandwidth with the opposite direction
	MaxCopyElapsed       float64 // longest single transfer wait
	SlowestCopy          string  // instruction name of MaxCopyElapsed (empty if none)
}

// Summarize computes aggregate statistics from an EstimateTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(et *EstimateTrace) *TraceSummary {
	summary := &TraceSummary{}
	if et == nil {
		return summary
	}

	summary.Instructions = len(et.Records)
	for _, r := range et.Records {
		switch r.Kind {
		case KindCompute:
			summary.ComputeElapsed += r.Elapsed
		case KindCopyIssue:
			summary.CopiesIssued++
		case KindCopyDone:
			summary.CopyElapsed += r.Elapsed
			if r.Elapsed > 0 {
				summary.CopiesCompleted++
			}
			if r.Contended {
				summary.ContendedCompletions++
			}
			if r.Elapsed > summary.MaxCopyElapsed {
				summary.MaxCopyElapsed = r.Elapsed
				summary.SlowestCopy = r.Instruction
			}
		}
	}
	return summary
}
