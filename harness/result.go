// Package harness drives the benchmark: it samples each registered task
// under its execution mode and aggregates the samples into a result set.
package harness

import "time"

// Status marks how a task's measurement ended. Unavailable is distinct
// from a zero-valued result: it means the task could not be measured at
// all.
type Status string

const (
	StatusOK          Status = "ok"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
)

// DurationStats holds descriptive statistics over a task's repetition
// durations, in seconds.
type DurationStats struct {
	Mean   float64 `json:"mean_sec"`
	Median float64 `json:"median_sec"`
	Stddev float64 `json:"stddev_sec"`
}

// TaskResult is the aggregate of one task's samples. Duration is present
// only when Status is ok.
type TaskResult struct {
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	// Count is the number of raw samples consumed. For a failed task it
	// counts the repetitions that completed before the failure.
	Count int `json:"count"`

	Duration *DurationStats `json:"duration,omitempty"`

	// MeanRSSDelta is the mean resident-set change per repetition.
	MeanRSSDelta int64 `json:"mean_rss_delta_bytes"`

	// GCCounts is the element-wise sum of per-repetition GC-counter
	// deltas.
	GCCounts []int64 `json:"gc_counts,omitempty"`
}

// Available reports whether the result carries usable statistics.
func (r TaskResult) Available() bool {
	return r.Status == StatusOK && r.Duration != nil
}

// ResultSet is the full output of one benchmark invocation. It is
// immutable after creation and is the unit exchanged between runs for
// comparison.
type ResultSet struct {
	RuntimeVersion string                `json:"runtime_version"`
	Timestamp      time.Time             `json:"timestamp"`
	TaskOrder      []string              `json:"task_order"`
	Results        map[string]TaskResult `json:"results"`
}

// Result returns the named task's result.
func (s *ResultSet) Result(name string) (TaskResult, bool) {
	r, ok := s.Results[name]

	return r, ok
}

// Ordered returns results in task order.
func (s *ResultSet) Ordered() []TaskResult {
	out := make([]TaskResult, 0, len(s.TaskOrder))
	for _, name := range s.TaskOrder {
		if r, ok := s.Results[name]; ok {
			out = append(out, r)
		}
	}

	return out
}
