// Package compare reconciles two benchmark result sets into per-task
// improvement rows. Tasks present on only one side, or unavailable on
// either, are reported as not applicable rather than failed.
package compare

import (
	"github.com/weiihann/benchoor/harness"
)

// Band is a human-readable label for an improvement magnitude. It never
// drives control flow.
type Band string

const (
	BandNA      Band = "n/a"
	BandNoise   Band = "noise"
	BandMinor   Band = "minor"
	BandNotable Band = "notable"
	BandMajor   Band = "major"
)

// Classification thresholds, in absolute percent.
const (
	noiseThreshold   = 1.0
	minorThreshold   = 5.0
	notableThreshold = 15.0
)

// Row is one task's comparison. Nil fields mean the side is missing or
// unavailable; Improvement is nil whenever either side is.
type Row struct {
	Name        string
	DurationA   *float64
	DurationB   *float64
	Improvement *float64
	Band        Band
}

// Compare produces one row per task in the union of both sets, ordered
// by a's task order with b's extra tasks appended in b's order.
//
// Improvement is (meanA - meanB) / meanA * 100: positive means b is
// faster than a.
func Compare(a, b *harness.ResultSet) []Row {
	rows := make([]Row, 0, len(a.TaskOrder)+len(b.TaskOrder))

	seen := make(map[string]bool, len(a.TaskOrder))

	for _, name := range a.TaskOrder {
		seen[name] = true
		rows = append(rows, buildRow(name, a, b))
	}

	for _, name := range b.TaskOrder {
		if !seen[name] {
			rows = append(rows, buildRow(name, a, b))
		}
	}

	return rows
}

func buildRow(name string, a, b *harness.ResultSet) Row {
	row := Row{Name: name, Band: BandNA}

	if d, ok := meanDuration(a, name); ok {
		row.DurationA = &d
	}

	if d, ok := meanDuration(b, name); ok {
		row.DurationB = &d
	}

	// A zero baseline cannot yield a meaningful percentage.
	if row.DurationA == nil || row.DurationB == nil || *row.DurationA == 0 {
		return row
	}

	improvement := (*row.DurationA - *row.DurationB) / *row.DurationA * 100
	row.Improvement = &improvement
	row.Band = Classify(improvement)

	return row
}

func meanDuration(set *harness.ResultSet, name string) (float64, bool) {
	result, ok := set.Result(name)
	if !ok || !result.Available() {
		return 0, false
	}

	return result.Duration.Mean, true
}

// Classify buckets an improvement percentage by magnitude.
func Classify(pct float64) Band {
	abs := pct
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs < noiseThreshold:
		return BandNoise
	case abs < minorThreshold:
		return BandMinor
	case abs < notableThreshold:
		return BandNotable
	default:
		return BandMajor
	}
}
