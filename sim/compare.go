package sim

import (
	"fmt"
	"sort"

	"github.com/inference-sim/tiersim/sim/trace"
)

// NamedPlan is one candidate allocation plan offered for comparison.
type NamedPlan struct {
	Name        string
	Allocations AllocationSequence
}

// PlanEstimate is the outcome of estimating one candidate plan.
type PlanEstimate struct {
	Plan    string
	Elapsed float64
	// Remaining copies that were still outstanding after the schedule ended.
	ReadDefaultQueue  []OutstandingAsyncCopy
	WriteDefaultQueue []OutstandingAsyncCopy
	Trace             *trace.EstimateTrace // nil unless tracing was requested
}

// EstimateOptions configures a single estimate run.
type EstimateOptions struct {
	ReadDefaultSeed  []OutstandingAsyncCopy // pre-seeded read-default queue
	WriteDefaultSeed []OutstandingAsyncCopy // pre-seeded write-default queue
	Trace            bool                   // collect a per-instruction trace
}

// EstimatePlan runs a fresh simulator over schedule under plan.
func EstimatePlan(costModel CostModel, schedule *Schedule, plan NamedPlan, opts EstimateOptions) (PlanEstimate, error) {
	s, err := NewRuntimeSimulatorWithQueues(costModel, opts.ReadDefaultSeed, opts.WriteDefaultSeed)
	if err != nil {
		return PlanEstimate{}, fmt.Errorf("estimate plan %q: %w", plan.Name, err)
	}
	var et *trace.EstimateTrace
	if opts.Trace {
		et = trace.NewEstimateTrace(plan.Name)
		s.SetTrace(et)
	}
	elapsed := s.ComputeEstimatedElapsedTime(schedule, plan.Allocations)
	return PlanEstimate{
		Plan:              plan.Name,
		Elapsed:           elapsed,
		ReadDefaultQueue:  s.OutstandingReadDefaultQueue(),
		WriteDefaultQueue: s.OutstandingWriteDefaultQueue(),
		Trace:             et,
	}, nil
}

// ComparePlans estimates every plan independently from the same starting queue
// state and returns the estimates fastest first. Ties are broken by plan name
// so the ranking is deterministic.
func ComparePlans(costModel CostModel, schedule *Schedule, plans []NamedPlan, opts EstimateOptions) ([]PlanEstimate, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("compare plans: no plans given")
	}
	results := make([]PlanEstimate, 0, len(plans))
	for _, plan := range plans {
		est, err := EstimatePlan(costModel, schedule, plan, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, est)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Elapsed != results[j].Elapsed {
			return results[i].Elapsed < results[j].Elapsed
		}
		return results[i].Plan < results[j].Plan
	})
	return results, nil
}
