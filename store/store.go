// Package store persists result sets as JSON records and exports them
// as flat CSV for external tooling.
package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/weiihann/benchoor/harness"
)

// Write encodes the result set as indented JSON.
func Write(w io.Writer, set *harness.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(set)
}

// Save writes the result set to dir, named by prefix, runtime version,
// and timestamp, and returns the path.
func Save(dir, prefix string, set *harness.ResultSet) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s_%s.json",
		prefix,
		set.RuntimeVersion,
		set.Timestamp.Format("20060102_150405"),
	)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := Write(f, set); err != nil {
		f.Close()

		return "", fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	return path, nil
}

// Load reads a persisted result set. A record that fails to parse or
// validate is fatal for the caller's operation; no partial set is
// returned.
func Load(path string) (*harness.ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open result set %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}

// Read decodes and validates a result set from r.
func Read(r io.Reader) (*harness.ResultSet, error) {
	var set harness.ResultSet
	if err := json.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode result set: %w", err)
	}

	if err := validate(&set); err != nil {
		return nil, fmt.Errorf("malformed result set: %w", err)
	}

	return &set, nil
}

func validate(set *harness.ResultSet) error {
	if set.RuntimeVersion == "" {
		return errors.New("missing runtime_version")
	}

	if set.Results == nil {
		return errors.New("missing results")
	}

	for _, name := range set.TaskOrder {
		if _, ok := set.Results[name]; !ok {
			return fmt.Errorf("task order references unknown task %q", name)
		}
	}

	return nil
}

// WriteCSV exports the result set as one row per task. Statistics
// columns are left empty for tasks that were not measured.
func WriteCSV(w io.Writer, set *harness.ResultSet) error {
	cw := csv.NewWriter(w)

	header := []string{
		"task", "mode", "status", "count",
		"mean_sec", "median_sec", "stddev_sec",
		"mean_rss_delta_bytes", "gc_counts",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, result := range set.Ordered() {
		record := []string{
			result.Name,
			result.Mode,
			string(result.Status),
			strconv.Itoa(result.Count),
			"", "", "", "", "",
		}

		if result.Available() {
			record[4] = formatSec(result.Duration.Mean)
			record[5] = formatSec(result.Duration.Median)
			record[6] = formatSec(result.Duration.Stddev)
			record[7] = strconv.FormatInt(result.MeanRSSDelta, 10)
			record[8] = joinCounts(result.GCCounts)
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row for %s: %w", result.Name, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatSec(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func joinCounts(counts []int64) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = strconv.FormatInt(c, 10)
	}

	return strings.Join(parts, ";")
}
