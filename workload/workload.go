// Package workload defines the benchmark task registry. Each task names a
// unit of work, the execution mode it must run under, and how often it is
// repeated. Tasks are immutable once registered and iterate in
// registration order.
package workload

import (
	"fmt"
)

// Mode selects how a task's computation is dispatched.
type Mode int

const (
	// ModeSequential invokes the workload directly on the calling goroutine.
	ModeSequential Mode = iota
	// ModeThread partitions the workload across a pool of goroutines
	// sharing the process memory space.
	ModeThread
	// ModeProcess partitions the workload across a pool of child OS
	// processes, crossing the boundary by serialization.
	ModeProcess
	// ModeIsolated runs the workload inside a freshly initialized
	// interpreter context sharing nothing with the harness beyond the
	// result handoff.
	ModeIsolated
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeThread:
		return "thread"
	case ModeProcess:
		return "process"
	case ModeIsolated:
		return "isolated"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode label back into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sequential":
		return ModeSequential, nil
	case "thread":
		return ModeThread, nil
	case "process":
		return ModeProcess, nil
	case "isolated":
		return ModeIsolated, nil
	default:
		return 0, fmt.Errorf("unknown execution mode %q", s)
	}
}

// Defaults applied to builtin tasks when no override is given.
const (
	DefaultRepetitions = 5
	DefaultWorkers     = 4
)

// Task is one registered workload. Exactly one work form must be set for
// the task's mode: Fn for sequential tasks, Partial (plus Iterations and
// Workers) for thread and process tasks, Program for isolated tasks.
// Partial must be a pure function of its range so that partitioned
// execution combines to the same result as a single [0, Iterations) call.
type Task struct {
	Name        string
	Mode        Mode
	Repetitions int

	Workers    int
	Iterations int64

	Fn      func() error
	Partial func(start, end int64) int64
	Program string
}

// Registry holds registered tasks keyed by name, preserving registration
// order.
type Registry struct {
	order []string
	tasks map[string]Task
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task. Names must be unique and the task must carry the
// work form its mode requires.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return fmt.Errorf("task name must not be empty")
	}

	if _, ok := r.tasks[t.Name]; ok {
		return fmt.Errorf("task %q already registered", t.Name)
	}

	if t.Repetitions < 1 {
		return fmt.Errorf("task %q: repetitions must be >= 1", t.Name)
	}

	switch t.Mode {
	case ModeSequential:
		if t.Fn == nil && t.Partial == nil {
			return fmt.Errorf("task %q: sequential mode needs Fn or Partial", t.Name)
		}

	case ModeThread, ModeProcess:
		if t.Partial == nil {
			return fmt.Errorf("task %q: %s mode needs Partial", t.Name, t.Mode)
		}
		if t.Workers < 1 {
			return fmt.Errorf("task %q: %s mode needs Workers >= 1", t.Name, t.Mode)
		}
		if t.Iterations < 1 {
			return fmt.Errorf("task %q: %s mode needs Iterations >= 1", t.Name, t.Mode)
		}

	case ModeIsolated:
		// A task may legitimately have no Program: the executor reports
		// it as unsupported instead of remapping it to another mode.

	default:
		return fmt.Errorf("task %q: unknown mode %d", t.Name, int(t.Mode))
	}

	r.order = append(r.order, t.Name)
	r.tasks[t.Name] = t

	return nil
}

// Lookup returns the named task.
func (r *Registry) Lookup(name string) (Task, bool) {
	t, ok := r.tasks[name]

	return t, ok
}

// Names returns task names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// Tasks returns all tasks in registration order.
func (r *Registry) Tasks() []Task {
	out := make([]Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tasks[name])
	}

	return out
}
