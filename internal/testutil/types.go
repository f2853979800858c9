package testutil

import "time"

// ExecutionRecord holds the start and end times for a single step's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// FinishedBefore reports whether r ended no later than other started.
func (r *ExecutionRecord) FinishedBefore(other *ExecutionRecord) bool {
	return !r.End.After(other.Start)
}

// Overlaps reports whether the two execution windows intersect.
func (r *ExecutionRecord) Overlaps(other *ExecutionRecord) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}
