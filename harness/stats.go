package harness

import (
	"math"
	"sort"

	"github.com/weiihann/benchoor/executor"
	"github.com/weiihann/benchoor/workload"
)

// Aggregate reduces a task's raw samples into a TaskResult. An empty
// sample set yields a result marked unavailable, never zero-valued
// statistics that could be misread as fast.
func Aggregate(task workload.Task, samples []executor.RawSample) TaskResult {
	result := TaskResult{
		Name:  task.Name,
		Mode:  task.Mode.String(),
		Count: len(samples),
	}

	if len(samples) == 0 {
		result.Status = StatusUnavailable
		result.Error = "no samples collected"

		return result
	}

	durations := make([]float64, len(samples))

	var rssSum int64

	var gcSums []int64

	for i, s := range samples {
		durations[i] = s.Duration.Seconds()
		rssSum += s.RSSDelta

		for j, d := range s.GCDelta {
			if j >= len(gcSums) {
				gcSums = append(gcSums, 0)
			}
			gcSums[j] += d
		}
	}

	result.Status = StatusOK
	result.Duration = &DurationStats{
		Mean:   mean(durations),
		Median: median(durations),
		Stddev: stddevPop(durations),
	}
	result.MeanRSSDelta = rssSum / int64(len(samples))
	result.GCCounts = gcSums

	return result
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddevPop is the population standard deviation.
func stddevPop(xs []float64) float64 {
	m := mean(xs)

	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(xs)))
}
