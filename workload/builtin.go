package workload

import "fmt"

// Override adjusts a builtin task's tunables. Zero fields keep the
// default.
type Override struct {
	Repetitions int   `yaml:"repetitions"`
	Workers     int   `yaml:"workers"`
	Iterations  int64 `yaml:"iterations"`
}

// interpProgram is the isolated-mode rendition of the cpu_bound loop.
// The VM it runs in is created fresh per repetition, so the measured cost
// includes interpreter startup.
const interpProgram = `
var s = 0;
for (var i = 0; i < 200000; i++) {
	s += (i ^ (i << 1)) % (i + 1);
}
s;
`

// Builtin returns the fixed benchmark task set, optionally tuned by
// per-task overrides. An override naming an unknown task is an error.
func Builtin(overrides map[string]Override) (*Registry, error) {
	reg := NewRegistry()

	tasks := []Task{
		{
			Name:        "cpu_bound",
			Mode:        ModeSequential,
			Repetitions: DefaultRepetitions,
			Iterations:  1_000_000,
			Partial:     cpuMix,
		},
		{
			Name:        "alloc_heavy",
			Mode:        ModeSequential,
			Repetitions: DefaultRepetitions,
			Fn:          allocHeavy,
		},
		{
			Name:        "multithread",
			Mode:        ModeThread,
			Repetitions: DefaultRepetitions,
			Workers:     DefaultWorkers,
			Iterations:  1_000_000,
			Partial:     squareXor,
		},
		{
			Name:        "multiproc",
			Mode:        ModeProcess,
			Repetitions: DefaultRepetitions,
			Workers:     DefaultWorkers,
			Iterations:  1_000_000,
			Partial:     squareXor,
		},
		{
			Name:        "interp",
			Mode:        ModeIsolated,
			Repetitions: DefaultRepetitions,
			Program:     interpProgram,
		},
	}

	known := make(map[string]bool, len(tasks))

	for _, t := range tasks {
		known[t.Name] = true

		if ov, ok := overrides[t.Name]; ok {
			if ov.Repetitions > 0 {
				t.Repetitions = ov.Repetitions
			}
			if ov.Workers > 0 {
				t.Workers = ov.Workers
			}
			if ov.Iterations > 0 {
				t.Iterations = ov.Iterations
			}
		}

		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}

	for name := range overrides {
		if !known[name] {
			return nil, fmt.Errorf("override for unknown task %q", name)
		}
	}

	return reg, nil
}

// cpuMix is an integer-mixing loop over [start, end). Deterministic and
// independent per range, so it partitions cleanly across workers.
func cpuMix(start, end int64) int64 {
	var s int64
	for i := start; i < end; i++ {
		s += (i ^ (i << 1)) % (i + 1)
	}

	return s
}

// squareXor mirrors cpuMix with a cheaper mixing step, used by the
// fan-out modes.
func squareXor(start, end int64) int64 {
	var s int64
	for i := start; i < end; i++ {
		s += (i * i) ^ (i >> 1)
	}

	return s
}

// allocHeavy churns short-lived maps and slices to exercise the
// allocator and GC.
func allocHeavy() error {
	out := make([]map[string]int, 0, 1000)

	for i := 0; i < 1000; i++ {
		m := map[string]int{
			"a": i,
			"b": i * 2,
			"c": i * 3,
		}
		out = append(out, m)
	}

	if len(out) != 1000 {
		return fmt.Errorf("alloc_heavy: built %d entries, want 1000", len(out))
	}

	return nil
}
