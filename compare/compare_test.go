package compare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/benchoor/harness"
)

func resultSet(means map[string]float64, order []string) *harness.ResultSet {
	set := &harness.ResultSet{
		RuntimeVersion: "go-test",
		Timestamp:      time.Now(),
		TaskOrder:      order,
		Results:        make(map[string]harness.TaskResult),
	}

	for name, mean := range means {
		set.Results[name] = harness.TaskResult{
			Name:   name,
			Mode:   "sequential",
			Status: harness.StatusOK,
			Count:  5,
			Duration: &harness.DurationStats{
				Mean:   mean,
				Median: mean,
			},
		}
	}

	return set
}

func TestCompareSelf(t *testing.T) {
	set := resultSet(
		map[string]float64{"a": 0.1, "b": 0.2},
		[]string{"a", "b"},
	)

	rows := Compare(set, set)
	require.Len(t, rows, 2)

	for _, row := range rows {
		require.NotNil(t, row.Improvement)
		assert.InDelta(t, 0, *row.Improvement, 1e-9)
		assert.Equal(t, BandNoise, row.Band)
	}
}

func TestCompareHalvedDurations(t *testing.T) {
	a := resultSet(
		map[string]float64{"a": 0.1, "b": 0.4},
		[]string{"a", "b"},
	)
	b := resultSet(
		map[string]float64{"a": 0.05, "b": 0.2},
		[]string{"a", "b"},
	)

	rows := Compare(a, b)
	require.Len(t, rows, 2)

	for _, row := range rows {
		require.NotNil(t, row.Improvement)
		assert.InDelta(t, 50, *row.Improvement, 1e-9)
		assert.Equal(t, BandMajor, row.Band)
	}
}

func TestCompareRegression(t *testing.T) {
	a := resultSet(map[string]float64{"a": 0.1}, []string{"a"})
	b := resultSet(map[string]float64{"a": 0.2}, []string{"a"})

	rows := Compare(a, b)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Improvement)
	assert.InDelta(t, -100, *rows[0].Improvement, 1e-9)
	assert.Equal(t, BandMajor, rows[0].Band)
}

func TestCompareMissingSide(t *testing.T) {
	a := resultSet(map[string]float64{"shared": 0.1, "only_a": 0.2},
		[]string{"shared", "only_a"})
	b := resultSet(map[string]float64{"shared": 0.1, "only_b": 0.3},
		[]string{"shared", "only_b"})

	rows := Compare(a, b)
	require.Len(t, rows, 3)

	byName := make(map[string]Row, len(rows))
	for _, row := range rows {
		byName[row.Name] = row
	}

	onlyA := byName["only_a"]
	assert.NotNil(t, onlyA.DurationA)
	assert.Nil(t, onlyA.DurationB)
	assert.Nil(t, onlyA.Improvement)
	assert.Equal(t, BandNA, onlyA.Band)

	onlyB := byName["only_b"]
	assert.Nil(t, onlyB.DurationA)
	assert.NotNil(t, onlyB.DurationB)
	assert.Nil(t, onlyB.Improvement)
	assert.Equal(t, BandNA, onlyB.Band)
}

func TestCompareUnavailableTreatedAsMissing(t *testing.T) {
	a := resultSet(map[string]float64{"t": 0.1}, []string{"t"})

	b := resultSet(nil, []string{"t"})
	b.Results["t"] = harness.TaskResult{
		Name:   "t",
		Status: harness.StatusUnavailable,
	}

	rows := Compare(a, b)
	require.Len(t, rows, 1)

	assert.NotNil(t, rows[0].DurationA)
	assert.Nil(t, rows[0].DurationB)
	assert.Nil(t, rows[0].Improvement)
	assert.Equal(t, BandNA, rows[0].Band)
}

func TestCompareZeroBaseline(t *testing.T) {
	a := resultSet(map[string]float64{"t": 0}, []string{"t"})
	b := resultSet(map[string]float64{"t": 0.1}, []string{"t"})

	rows := Compare(a, b)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Improvement)
	assert.Equal(t, BandNA, rows[0].Band)
}

func TestCompareOrdering(t *testing.T) {
	a := resultSet(map[string]float64{"x": 0.1, "y": 0.1},
		[]string{"x", "y"})
	b := resultSet(map[string]float64{"y": 0.1, "extra1": 0.1, "extra2": 0.1},
		[]string{"extra2", "y", "extra1"})

	rows := Compare(a, b)

	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Name
	}

	// A's order first, then B's extras in B's order.
	assert.Equal(t, []string{"x", "y", "extra2", "extra1"}, names)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pct  float64
		want Band
	}{
		{0, BandNoise},
		{0.99, BandNoise},
		{-0.5, BandNoise},
		{1, BandMinor},
		{4.9, BandMinor},
		{-3, BandMinor},
		{5, BandNotable},
		{14.9, BandNotable},
		{-10, BandNotable},
		{15, BandMajor},
		{50, BandMajor},
		{-80, BandMajor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.pct), "pct=%v", tt.pct)
	}
}
