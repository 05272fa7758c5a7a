// Package executor dispatches a workload under one of four execution
// strategies and measures each invocation: wall-clock duration, RSS
// delta, and GC-counter deltas bracketed tightly around the work.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/sync/errgroup"

	"github.com/weiihann/benchoor/metrics"
	"github.com/weiihann/benchoor/workload"
)

// ErrUnsupported reports that a task's execution mode cannot run in this
// harness. It is never silently remapped to another mode.
var ErrUnsupported = errors.New("execution mode unsupported")

// RawSample is one repetition's raw measurement. Samples are created
// here, consumed by aggregation, and never persisted.
type RawSample struct {
	// Duration is the wall-clock span of the whole invocation,
	// including any fan-out and its join.
	Duration time.Duration
	// RSSDelta is resident-set change around the invocation. May be
	// negative if memory was reclaimed.
	RSSDelta int64
	// GCDelta holds per-counter collector deltas.
	GCDelta []int64
}

// Capabilities records optional runtime support, probed once at startup.
type Capabilities struct {
	// Isolated reports whether the embedded interpreter is available.
	Isolated bool
}

// ProbeCapabilities detects optional runtime support. The interpreter is
// compiled in, so isolated mode is available whenever the binary is.
func ProbeCapabilities() Capabilities {
	return Capabilities{Isolated: true}
}

// Executor runs tasks under their declared mode.
type Executor struct {
	logger    *slog.Logger
	probe     metrics.Probe
	caps      Capabilities
	workerCmd []string
}

// New creates an Executor. workerCmd is the argv used to spawn
// process-parallel children (typically the harness binary itself plus
// its worker subcommand); leave it empty if process mode is not needed.
func New(
	logger *slog.Logger,
	probe metrics.Probe,
	caps Capabilities,
	workerCmd []string,
) *Executor {
	return &Executor{
		logger:    logger.With(slog.String("component", "executor")),
		probe:     probe,
		caps:      caps,
		workerCmd: workerCmd,
	}
}

// Run executes one repetition of the task under its declared mode.
// Strategy setup that does not belong to the measured cost (request
// marshaling, range splitting) happens before the measurement bracket;
// spawning, transfer, and the join are inside it.
func (e *Executor) Run(
	ctx context.Context,
	task workload.Task,
	repetition int,
) (RawSample, error) {
	var invoke func(context.Context) (int64, error)

	switch task.Mode {
	case workload.ModeSequential:
		invoke = e.sequentialInvoke(task)

	case workload.ModeThread:
		invoke = e.threadInvoke(task)

	case workload.ModeProcess:
		if len(e.workerCmd) == 0 {
			return RawSample{}, fmt.Errorf(
				"task %q: no worker command configured", task.Name,
			)
		}
		invoke = e.processInvoke(task)

	case workload.ModeIsolated:
		if !e.caps.Isolated {
			return RawSample{}, fmt.Errorf(
				"task %q: isolated interpreter: %w", task.Name, ErrUnsupported,
			)
		}
		if task.Program == "" {
			return RawSample{}, fmt.Errorf(
				"task %q: no interpreter program: %w", task.Name, ErrUnsupported,
			)
		}
		invoke = e.isolatedInvoke(task)

	default:
		return RawSample{}, fmt.Errorf(
			"task %q: mode %d: %w", task.Name, int(task.Mode), ErrUnsupported,
		)
	}

	e.logger.Debug("running repetition",
		slog.String("task", task.Name),
		slog.String("mode", task.Mode.String()),
		slog.Int("repetition", repetition),
	)

	return e.measure(ctx, invoke)
}

// measure brackets the invocation with probe snapshots and the clock.
func (e *Executor) measure(
	ctx context.Context,
	invoke func(context.Context) (int64, error),
) (RawSample, error) {
	before, err := e.probe.Snapshot()
	if err != nil {
		return RawSample{}, fmt.Errorf("pre-run snapshot: %w", err)
	}

	start := time.Now()
	_, invokeErr := invoke(ctx)
	elapsed := time.Since(start)

	after, err := e.probe.Snapshot()

	if invokeErr != nil {
		return RawSample{}, invokeErr
	}

	if err != nil {
		return RawSample{}, fmt.Errorf("post-run snapshot: %w", err)
	}

	return RawSample{
		Duration: elapsed,
		RSSDelta: after.RSSBytes - before.RSSBytes,
		GCDelta:  metrics.GCDelta(before, after),
	}, nil
}

func (e *Executor) sequentialInvoke(
	task workload.Task,
) func(context.Context) (int64, error) {
	return func(context.Context) (int64, error) {
		if task.Fn != nil {
			return 0, task.Fn()
		}

		return task.Partial(0, task.Iterations), nil
	}
}

// threadInvoke partitions the work across a fixed pool of goroutines.
// Workers share nothing but their private result slot; the only
// synchronization is the join barrier.
func (e *Executor) threadInvoke(
	task workload.Task,
) func(context.Context) (int64, error) {
	ranges := splitRange(task.Iterations, task.Workers)

	return func(ctx context.Context) (int64, error) {
		g, _ := errgroup.WithContext(ctx)

		sums := make([]int64, len(ranges))

		for i, rg := range ranges {
			i, rg := i, rg
			g.Go(func() error {
				sums[i] = task.Partial(rg[0], rg[1])

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return 0, fmt.Errorf("worker goroutine: %w", err)
		}

		var total int64
		for _, s := range sums {
			total += s
		}

		return total, nil
	}
}

// processInvoke partitions the work across child OS processes. Requests
// are marshaled ahead of the measurement bracket; the spawn, the
// serialized transfer, and the join are inside it since they are part of
// the realistic cost. Any child failure fails the whole repetition.
func (e *Executor) processInvoke(
	task workload.Task,
) func(context.Context) (int64, error) {
	ranges := splitRange(task.Iterations, task.Workers)

	payloads := make([][]byte, len(ranges))
	for i, rg := range ranges {
		payloads[i], _ = json.Marshal(WorkRequest{
			Task:  task.Name,
			Start: rg[0],
			End:   rg[1],
		})
	}

	return func(ctx context.Context) (int64, error) {
		g, ctx := errgroup.WithContext(ctx)

		sums := make([]int64, len(payloads))

		for i, payload := range payloads {
			i, payload := i, payload
			g.Go(func() error {
				cmd := exec.CommandContext(
					ctx, e.workerCmd[0], e.workerCmd[1:]...,
				)
				cmd.Stdin = bytes.NewReader(payload)

				var stdout, stderr bytes.Buffer
				cmd.Stdout = &stdout
				cmd.Stderr = &stderr

				if err := cmd.Run(); err != nil {
					return fmt.Errorf(
						"worker %d failed: %w\nstderr: %s",
						i, err, stderr.String(),
					)
				}

				var resp WorkResponse
				if err := json.NewDecoder(&stdout).Decode(&resp); err != nil {
					return fmt.Errorf("decode worker %d response: %w", i, err)
				}

				if resp.Error != "" {
					return fmt.Errorf("worker %d: %s", i, resp.Error)
				}

				sums[i] = resp.Sum

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return 0, err
		}

		var total int64
		for _, s := range sums {
			total += s
		}

		return total, nil
	}
}

// isolatedInvoke runs the task's program in a freshly initialized VM.
// Nothing crosses the boundary except the program source in and the
// result value out; a context expiry interrupts the VM.
func (e *Executor) isolatedInvoke(
	task workload.Task,
) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		vm := goja.New()

		done := make(chan struct{})
		defer close(done)

		go func() {
			select {
			case <-ctx.Done():
				vm.Interrupt(ctx.Err())
			case <-done:
			}
		}()

		val, err := vm.RunString(task.Program)
		if err != nil {
			return 0, fmt.Errorf("interpreter: %w", err)
		}

		return val.ToInteger(), nil
	}
}
