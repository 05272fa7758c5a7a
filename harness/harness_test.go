package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/benchoor/executor"
	"github.com/weiihann/benchoor/metrics"
	"github.com/weiihann/benchoor/workload"
)

type fakeProbe struct {
	rss int64
}

func (p *fakeProbe) Snapshot() (metrics.Snapshot, error) {
	p.rss += 100

	return metrics.Snapshot{
		RSSBytes: p.rss,
		GCCounts: []int64{0, 0},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSampler(timeout time.Duration) *Sampler {
	exec := executor.New(
		testLogger(), &fakeProbe{}, executor.ProbeCapabilities(), nil,
	)

	return NewSampler(exec, testLogger(), timeout)
}

func sleepTask(name string, d time.Duration, reps int) workload.Task {
	return workload.Task{
		Name:        name,
		Mode:        workload.ModeSequential,
		Repetitions: reps,
		Fn: func() error {
			time.Sleep(d)

			return nil
		},
	}
}

func TestSampleCount(t *testing.T) {
	sampler := newTestSampler(0)

	task := sleepTask("fixed", time.Millisecond, 5)

	samples, err := sampler.Sample(context.Background(), task)
	require.NoError(t, err)
	assert.Len(t, samples, 5)
}

func TestSampleDeterministicDuration(t *testing.T) {
	sampler := newTestSampler(0)

	const d = 10 * time.Millisecond

	task := sleepTask("fixed", d, 5)

	result := sampler.Result(context.Background(), task)

	require.True(t, result.Available())
	assert.Equal(t, 5, result.Count)

	// Sleep overshoots but never undershoots; allow generous headroom
	// for scheduler noise.
	assert.GreaterOrEqual(t, result.Duration.Mean, d.Seconds())
	assert.InDelta(t, d.Seconds(), result.Duration.Mean, 0.01)
	assert.Less(t, result.Duration.Stddev, 0.01)
}

func TestSampleAbortsOnFailure(t *testing.T) {
	sampler := newTestSampler(0)

	calls := 0

	task := workload.Task{
		Name:        "flaky",
		Mode:        workload.ModeSequential,
		Repetitions: 5,
		Fn: func() error {
			calls++
			if calls == 3 {
				return errors.New("third run exploded")
			}

			return nil
		},
	}

	samples, err := sampler.Sample(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repetition 2")

	// The two completed repetitions are reported, not silently dropped.
	assert.Len(t, samples, 2)
	assert.Equal(t, 3, calls, "sampling must stop at the failure")
}

func TestResultFailedTask(t *testing.T) {
	sampler := newTestSampler(0)

	task := workload.Task{
		Name:        "broken",
		Mode:        workload.ModeSequential,
		Repetitions: 3,
		Fn:          func() error { return errors.New("nope") },
	}

	result := sampler.Result(context.Background(), task)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Zero(t, result.Count)
	assert.Nil(t, result.Duration)
	assert.Contains(t, result.Error, "nope")
}

func TestResultUnsupportedMode(t *testing.T) {
	sampler := newTestSampler(0)

	task := workload.Task{
		Name:        "iso",
		Mode:        workload.ModeIsolated,
		Repetitions: 3,
		// No Program: the executor must refuse rather than fall back.
	}

	result := sampler.Result(context.Background(), task)

	assert.Equal(t, StatusUnavailable, result.Status)
	assert.Nil(t, result.Duration)
}

func TestResultTimeoutMarksFailed(t *testing.T) {
	sampler := newTestSampler(100 * time.Millisecond)

	task := workload.Task{
		Name:        "hang",
		Mode:        workload.ModeIsolated,
		Repetitions: 2,
		Program:     `for (;;) {}`,
	}

	result := sampler.Result(context.Background(), task)

	assert.Equal(t, StatusFailed, result.Status)
}

func TestRunFaultIsolation(t *testing.T) {
	reg := workload.NewRegistry()

	require.NoError(t, reg.Register(workload.Task{
		Name:        "bad",
		Mode:        workload.ModeSequential,
		Repetitions: 2,
		Fn:          func() error { return errors.New("always fails") },
	}))
	require.NoError(t, reg.Register(sleepTask("good", time.Millisecond, 3)))

	sampler := newTestSampler(0)

	set, err := harnessRun(t, reg, sampler, nil)
	require.NoError(t, err)

	bad, ok := set.Result("bad")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, bad.Status)

	good, ok := set.Result("good")
	require.True(t, ok)
	assert.Equal(t, StatusOK, good.Status)
	assert.Equal(t, 3, good.Count)
}

func TestRunRegistryOrder(t *testing.T) {
	reg := workload.NewRegistry()

	for _, name := range []string{"z", "m", "a"} {
		require.NoError(t, reg.Register(sleepTask(name, 0, 1)))
	}

	set, err := harnessRun(t, reg, newTestSampler(0), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "m", "a"}, set.TaskOrder)
	assert.NotEmpty(t, set.RuntimeVersion)
	assert.False(t, set.Timestamp.IsZero())
}

func TestRunUnknownTask(t *testing.T) {
	reg := workload.NewRegistry()
	require.NoError(t, reg.Register(sleepTask("only", 0, 1)))

	_, err := harnessRun(t, reg, newTestSampler(0), []string{"missing"})
	assert.Error(t, err)
}

func TestRunEndToEndScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	sampler := newTestSampler(0)

	makeSet := func(fastDur time.Duration) *ResultSet {
		reg := workload.NewRegistry()
		require.NoError(t, reg.Register(sleepTask("fast", fastDur, 5)))
		require.NoError(t, reg.Register(sleepTask("slow", 20*time.Millisecond, 5)))

		set, err := harnessRun(t, reg, sampler, nil)
		require.NoError(t, err)

		return set
	}

	set := makeSet(10 * time.Millisecond)

	for name, want := range map[string]float64{"fast": 0.01, "slow": 0.02} {
		result, ok := set.Result(name)
		require.True(t, ok)
		require.True(t, result.Available())
		assert.Equal(t, 5, result.Count)
		assert.InDelta(t, want, result.Duration.Mean, 0.01, name)
	}
}

func harnessRun(
	t *testing.T,
	reg *workload.Registry,
	sampler *Sampler,
	names []string,
) (*ResultSet, error) {
	t.Helper()

	return Run(context.Background(), testLogger(), reg, sampler, names)
}
