package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/tiersim/sim"
	"github.com/inference-sim/tiersim/sim/program"
	"github.com/inference-sim/tiersim/sim/recorder"
	"github.com/inference-sim/tiersim/sim/trace"
)

// runOptions is the resolved flag set for one CLI invocation.
type runOptions struct {
	ProgramPath         string
	Plan                string   // estimate only; empty means every plan
	FlopsPerSecond      *float64 // nil keeps the program's value
	DefaultMemBandwidth *float64 // nil keeps the program's value
	Trace               bool
	RecordDB            string
}

// QueuedCopy is a copy still outstanding after the schedule ended.
type QueuedCopy struct {
	CopyStart      string  `json:"copy_start"`
	RemainingBytes float64 `json:"remaining_bytes"`
}

// PlanReport is the JSON form of one plan estimate.
type PlanReport struct {
	Rank                 int                    `json:"rank,omitempty"`
	Program              string                 `json:"program"`
	Plan                 string                 `json:"plan"`
	ElapsedTime          float64                `json:"elapsed_time"`
	ComputeElapsed       float64                `json:"compute_elapsed"`
	CopyElapsed          float64                `json:"copy_elapsed"`
	CopiesIssued         int                    `json:"copies_issued"`
	CopiesCompleted      int                    `json:"copies_completed"`
	ContendedCompletions int                    `json:"contended_completions"`
	SlowestCopy          string                 `json:"slowest_copy,omitempty"`
	ReadDefaultQueue     []QueuedCopy           `json:"outstanding_read_default"`
	WriteDefaultQueue    []QueuedCopy           `json:"outstanding_write_default"`
	Records              []trace.EstimateRecord `json:"records,omitempty"`
}

func newPlanReport(programName string, est sim.PlanEstimate, withRecords bool) PlanReport {
	summary := trace.Summarize(est.Trace)
	report := PlanReport{
		Program:              programName,
		Plan:                 est.Plan,
		ElapsedTime:          est.Elapsed,
		ComputeElapsed:       summary.ComputeElapsed,
		CopyElapsed:          summary.CopyElapsed,
		CopiesIssued:         summary.CopiesIssued,
		CopiesCompleted:      summary.CopiesCompleted,
		ContendedCompletions: summary.ContendedCompletions,
		SlowestCopy:          summary.SlowestCopy,
		ReadDefaultQueue:     queuedCopies(est.ReadDefaultQueue),
		WriteDefaultQueue:    queuedCopies(est.WriteDefaultQueue),
	}
	if withRecords && est.Trace != nil {
		report.Records = est.Trace.Records
	}
	return report
}

func queuedCopies(q []sim.OutstandingAsyncCopy) []QueuedCopy {
	out := make([]QueuedCopy, 0, len(q))
	for _, c := range q {
		out = append(out, QueuedCopy{CopyStart: c.CopyStart.Name, RemainingBytes: c.RemainingBytes})
	}
	return out
}

// loadProgram loads the program and applies hardware overrides.
func loadProgram(opts runOptions) (*program.Program, error) {
	p, err := program.Load(opts.ProgramPath)
	if err != nil {
		return nil, err
	}
	if opts.FlopsPerSecond == nil && opts.DefaultMemBandwidth == nil {
		return p, nil
	}
	hw := p.CostModel.Hardware()
	if opts.FlopsPerSecond != nil {
		hw.FlopsPerSecond = *opts.FlopsPerSecond
	}
	if opts.DefaultMemBandwidth != nil {
		hw.DefaultMemBandwidth = *opts.DefaultMemBandwidth
	}
	cm, err := p.CostModel.WithHardware(hw)
	if err != nil {
		return nil, err
	}
	logrus.Infof("hardware overridden: flops_per_second=%v default_mem_bytes_per_second=%v", hw.FlopsPerSecond, hw.DefaultMemBandwidth)
	p.CostModel = cm
	return p, nil
}

// selectPlans returns the named plan, or every plan when name is empty.
func selectPlans(p *program.Program, name string) ([]sim.NamedPlan, error) {
	if name == "" {
		return p.Plans, nil
	}
	plan, ok := p.Plan(name)
	if !ok {
		return nil, fmt.Errorf("unknown plan %q (valid: %v)", name, p.PlanNames())
	}
	return []sim.NamedPlan{plan}, nil
}

// openRecorder returns nil when recording is disabled.
func openRecorder(path string) (*recorder.Recorder, error) {
	if path == "" {
		return nil, nil
	}
	return recorder.New(path)
}

func record(rec *recorder.Recorder, estimates []sim.PlanEstimate) error {
	if rec == nil {
		return nil
	}
	for _, est := range estimates {
		if err := rec.Write(est.Trace); err != nil {
			return err
		}
	}
	if err := rec.Close(); err != nil {
		return err
	}
	logrus.Infof("recorded %d plans into %s (run %s)", len(estimates), rec.Filename(), rec.RunID())
	return nil
}

// runEstimate estimates the selected plans in declaration order and prints one
// JSON report per plan to w.
func runEstimate(opts runOptions, w io.Writer) error {
	p, err := loadProgram(opts)
	if err != nil {
		return err
	}
	plans, err := selectPlans(p, opts.Plan)
	if err != nil {
		return err
	}
	rec, err := openRecorder(opts.RecordDB)
	if err != nil {
		return err
	}

	// Summaries come from the trace, so it is always collected.
	estimateOpts := p.EstimateOptions(true)
	estimates := make([]sim.PlanEstimate, 0, len(plans))
	for _, plan := range plans {
		est, err := sim.EstimatePlan(p.CostModel, p.Schedule, plan, estimateOpts)
		if err != nil {
			return err
		}
		logrus.Debugf("plan %q: elapsed %v", plan.Name, est.Elapsed)
		estimates = append(estimates, est)
	}

	fmt.Fprintln(w, "=== Estimate ===")
	for _, est := range estimates {
		if err := writeJSON(w, newPlanReport(p.Name, est, opts.Trace)); err != nil {
			return err
		}
	}
	return record(rec, estimates)
}

// runCompare ranks every plan fastest first and prints the ranking as a JSON array.
func runCompare(opts runOptions, w io.Writer) error {
	p, err := loadProgram(opts)
	if err != nil {
		return err
	}
	rec, err := openRecorder(opts.RecordDB)
	if err != nil {
		return err
	}

	ranked, err := sim.ComparePlans(p.CostModel, p.Schedule, p.Plans, p.EstimateOptions(true))
	if err != nil {
		return err
	}

	reports := make([]PlanReport, 0, len(ranked))
	for i, est := range ranked {
		report := newPlanReport(p.Name, est, false)
		report.Rank = i + 1
		reports = append(reports, report)
	}

	fmt.Fprintln(w, "=== Plan Ranking ===")
	if err := writeJSON(w, reports); err != nil {
		return err
	}
	return record(rec, ranked)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
