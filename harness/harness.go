package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/weiihann/benchoor/executor"
	"github.com/weiihann/benchoor/workload"
)

// Sampler runs a task's configured repetitions strictly in order: one
// repetition, including any internal fan-out, fully completes before the
// next begins, so measurement windows never overlap.
type Sampler struct {
	exec    *executor.Executor
	logger  *slog.Logger
	timeout time.Duration
}

// NewSampler creates a Sampler. timeout bounds each repetition; zero
// means no limit, in which case a hung workload hangs the harness.
func NewSampler(
	exec *executor.Executor,
	logger *slog.Logger,
	timeout time.Duration,
) *Sampler {
	return &Sampler{
		exec:    exec,
		logger:  logger.With(slog.String("component", "sampler")),
		timeout: timeout,
	}
}

// Sample collects the task's repetitions. On error it returns the
// samples gathered so far along with the error; the caller records the
// failure rather than dropping the failing repetition silently.
func (s *Sampler) Sample(
	ctx context.Context,
	task workload.Task,
) ([]executor.RawSample, error) {
	samples := make([]executor.RawSample, 0, task.Repetitions)

	for rep := 0; rep < task.Repetitions; rep++ {
		// Settle the heap before the measurement bracket so one
		// repetition's garbage is not charged to the next.
		runtime.GC()

		repCtx := ctx

		var cancel context.CancelFunc
		if s.timeout > 0 {
			repCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}

		sample, err := s.exec.Run(repCtx, task, rep)

		if cancel != nil {
			cancel()
		}

		if err != nil {
			return samples, fmt.Errorf(
				"task %q repetition %d: %w", task.Name, rep, err,
			)
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

// Result samples the task and aggregates the outcome, classifying
// failures: an unsupported mode yields an unavailable result, any other
// error a failed one. Other tasks are unaffected either way.
func (s *Sampler) Result(ctx context.Context, task workload.Task) TaskResult {
	samples, err := s.Sample(ctx, task)
	if err != nil {
		status := StatusFailed
		if errors.Is(err, executor.ErrUnsupported) {
			status = StatusUnavailable
		}

		s.logger.Warn("task not measured",
			slog.String("task", task.Name),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)

		return TaskResult{
			Name:   task.Name,
			Mode:   task.Mode.String(),
			Status: status,
			Error:  err.Error(),
			Count:  len(samples),
		}
	}

	return Aggregate(task, samples)
}

// Run samples every named task in registry order and assembles the
// ResultSet. A nil names slice means all registered tasks.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	reg *workload.Registry,
	sampler *Sampler,
	names []string,
) (*ResultSet, error) {
	if names == nil {
		names = reg.Names()
	}

	set := &ResultSet{
		RuntimeVersion: runtime.Version(),
		Timestamp:      time.Now(),
		TaskOrder:      make([]string, 0, len(names)),
		Results:        make(map[string]TaskResult, len(names)),
	}

	for _, name := range names {
		task, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown task %q", name)
		}

		logger.InfoContext(ctx, "sampling task",
			slog.String("task", task.Name),
			slog.String("mode", task.Mode.String()),
			slog.Int("repetitions", task.Repetitions),
		)

		result := sampler.Result(ctx, task)

		set.TaskOrder = append(set.TaskOrder, name)
		set.Results[name] = result

		if result.Available() {
			logger.InfoContext(ctx, "task sampled",
				slog.String("task", task.Name),
				slog.Int("count", result.Count),
				slog.Float64("mean_sec", result.Duration.Mean),
			)
		}
	}

	return set, nil
}
