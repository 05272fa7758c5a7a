// Package metrics provides the memory and GC probe used to bracket
// workload invocations. The probe is an explicit handle handed to the
// sampler so tests can substitute a deterministic source.
package metrics

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is one point-in-time reading of the harness process.
type Snapshot struct {
	// RSSBytes is the resident set size of the process.
	RSSBytes int64
	// GCCounts holds cumulative collector counts. The runtime probe
	// reports two: total GC cycles and forced cycles.
	GCCounts []int64
}

// Probe produces Snapshots. Implementations must be cheap enough to call
// immediately before and after a workload invocation.
type Probe interface {
	Snapshot() (Snapshot, error)
}

// RuntimeProbe reads RSS via the OS process table and GC counts from the
// Go runtime.
type RuntimeProbe struct {
	proc *process.Process
}

// NewRuntimeProbe builds a probe bound to the current process.
func NewRuntimeProbe() (*RuntimeProbe, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process handle: %w", err)
	}

	return &RuntimeProbe{proc: proc}, nil
}

// Snapshot implements Probe.
func (p *RuntimeProbe) Snapshot() (Snapshot, error) {
	memInfo, err := p.proc.MemoryInfo()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read memory info: %w", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Snapshot{
		RSSBytes: int64(memInfo.RSS),
		GCCounts: []int64{int64(ms.NumGC), int64(ms.NumForcedGC)},
	}, nil
}

// GCDelta returns the element-wise difference after-before. A length
// mismatch truncates to the shorter reading.
func GCDelta(before, after Snapshot) []int64 {
	n := len(before.GCCounts)
	if len(after.GCCounts) < n {
		n = len(after.GCCounts)
	}

	delta := make([]int64, n)
	for i := 0; i < n; i++ {
		delta[i] = after.GCCounts[i] - before.GCCounts[i]
	}

	return delta
}
