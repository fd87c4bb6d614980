package trace

// EstimateTrace collects records during one estimate run.
type EstimateTrace struct {
	Plan    string
	Records []EstimateRecord
}

// NewEstimateTrace creates an EstimateTrace ready for recording.
func NewEstimateTrace(plan string) *EstimateTrace {
	return &EstimateTrace{
		Plan:    plan,
		Records: make([]EstimateRecord, 0),
	}
}

// Record appends a record, assigning its Index from the arrival order.
func (et *EstimateTrace) Record(record EstimateRecord) {
	record.Index = len(et.Records)
	et.Records = append(et.Records, record)
}

// Total returns the sum of Elapsed over all records.
func (et *EstimateTrace) Total() float64 {
	if et == nil {
		return 0
	}
	total := 0.0
	for _, r := range et.Records {
		total += r.Elapsed
	}
	return total
}
