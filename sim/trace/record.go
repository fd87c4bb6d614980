// Package trace provides per-instruction recording of an elapsed-time estimate.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// RecordKind classifies how an instruction contributed to the estimate.
type RecordKind string

const (
	// KindCompute is a plain instruction charged compute time × trip count.
	KindCompute RecordKind = "compute"
	// KindCopyIssue is a copy-start that enqueued an outstanding transfer.
	KindCopyIssue RecordKind = "copy-issue"
	// KindCopyDone is a copy-done charged its simulated transfer time.
	KindCopyDone RecordKind = "copy-done"
)

// EstimateRecord captures one scheduled instruction's contribution.
// Queue byte totals are observed after the instruction was processed.
type EstimateRecord struct {
	Index             int        `json:"index"`
	Instruction       string     `json:"instruction"`
	Opcode            string     `json:"opcode"`
	Kind              RecordKind `json:"kind"`
	TripCount         int64      `json:"trip_count"`
	Elapsed           float64    `json:"elapsed"`
	Direction         string     `json:"direction,omitempty"` // copy records only; empty for compute
	Contended         bool       `json:"contended,omitempty"` // copy-done only: the opposite direction had outstanding work
	ReadDefaultBytes  float64    `json:"read_default_bytes"`
	WriteDefaultBytes float64    `json:"write_default_bytes"`
}
