// Package main provides the CLI entry point for benchoor, a runtime
// benchmark harness that samples a fixed workload set under four
// execution strategies and compares recorded runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/benchoor/compare"
	"github.com/weiihann/benchoor/executor"
	"github.com/weiihann/benchoor/harness"
	"github.com/weiihann/benchoor/metrics"
	"github.com/weiihann/benchoor/report"
	"github.com/weiihann/benchoor/store"
	"github.com/weiihann/benchoor/workload"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "benchoor",
		Short: "Runtime benchmark harness and comparison tool",
		Long: `Benchoor runs a fixed set of workloads under four execution
strategies (sequential, thread-parallel, process-parallel, isolated
interpreter), records timing, memory, and GC statistics, and compares
result sets recorded by different runtime versions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newCompareCmd(logger))
	root.AddCommand(newWorkerCmd())

	return root
}

type runConfig struct {
	tasks      []string
	reps       int
	timeout    time.Duration
	outDir     string
	prefix     string
	csvExport  bool
	jsonOutput bool
	configPath string
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark workloads and record a result set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), logger, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&cfg.tasks, "tasks", nil,
		"Subset of tasks to run (default: all)")
	flags.IntVar(&cfg.reps, "reps", 0,
		"Override repetition count for every task (0 = per-task default)")
	flags.DurationVar(&cfg.timeout, "timeout", 0,
		"Hard limit per repetition (0 = none)")
	flags.StringVar(&cfg.outDir, "out-dir", ".",
		"Directory for recorded result sets")
	flags.StringVar(&cfg.prefix, "prefix", "results",
		"File name prefix for recorded result sets")
	flags.BoolVar(&cfg.csvExport, "csv", false,
		"Also export the result set as CSV")
	flags.BoolVar(&cfg.jsonOutput, "json", false,
		"Print the result set as JSON instead of a table")
	flags.StringVar(&cfg.configPath, "config", "",
		"YAML file with per-task overrides")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) error {
	overrides, err := loadOverrides(cfg.configPath, cfg.reps)
	if err != nil {
		return err
	}

	reg, err := workload.Builtin(overrides)
	if err != nil {
		return fmt.Errorf("build task registry: %w", err)
	}

	probe, err := metrics.NewRuntimeProbe()
	if err != nil {
		return fmt.Errorf("create metrics probe: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own binary: %w", err)
	}

	caps := executor.ProbeCapabilities()

	exec := executor.New(logger, probe, caps, []string{self, "worker"})
	sampler := harness.NewSampler(exec, logger, cfg.timeout)

	var names []string
	if len(cfg.tasks) > 0 {
		names = cfg.tasks
	}

	set, err := harness.Run(ctx, logger, reg, sampler, names)
	if err != nil {
		return err
	}

	path, err := store.Save(cfg.outDir, cfg.prefix, set)
	if err != nil {
		return fmt.Errorf("save result set: %w", err)
	}

	logger.InfoContext(ctx, "result set saved", slog.String("path", path))

	if cfg.csvExport {
		csvPath := path[:len(path)-len(".json")] + ".csv"

		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", csvPath, err)
		}

		if err := store.WriteCSV(f, set); err != nil {
			f.Close()

			return fmt.Errorf("export CSV: %w", err)
		}

		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", csvPath, err)
		}

		logger.InfoContext(ctx, "CSV exported", slog.String("path", csvPath))
	}

	if cfg.jsonOutput {
		return store.Write(os.Stdout, set)
	}

	return report.Summary(os.Stdout, set)
}

func newCompareCmd(logger *slog.Logger) *cobra.Command {
	var noChart bool

	cmd := &cobra.Command{
		Use:   "compare <fileA> <fileB>",
		Short: "Compare two recorded result sets",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			setA, err := store.Load(args[0])
			if err != nil {
				return err
			}

			setB, err := store.Load(args[1])
			if err != nil {
				return err
			}

			rows := compare.Compare(setA, setB)

			err = report.Comparison(
				os.Stdout, setA.RuntimeVersion, setB.RuntimeVersion, rows,
			)
			if err != nil {
				return err
			}

			// The chart is optional output: skip it quietly when the
			// terminal cannot carry it, the report above stands alone.
			if !noChart && report.ChartAvailable() {
				report.Chart(os.Stdout, rows)
			} else if !noChart {
				logger.Info("stdout is not a terminal, skipping chart")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noChart, "no-chart", false,
		"Suppress the improvement bar chart")

	return cmd
}

// newWorkerCmd is the hidden entry point for process-parallel children:
// one JSON work request on stdin, one JSON response on stdout.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Hidden: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := workload.Builtin(nil)
			if err != nil {
				return err
			}

			return executor.RunWorker(reg, os.Stdin, os.Stdout)
		},
	}
}

type fileConfig struct {
	Tasks map[string]workload.Override `yaml:"tasks"`
}

// loadOverrides merges the optional YAML config with the global --reps
// flag; the flag wins.
func loadOverrides(
	path string,
	reps int,
) (map[string]workload.Override, error) {
	overrides := make(map[string]workload.Override)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg fileConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}

		for name, ov := range cfg.Tasks {
			overrides[name] = ov
		}
	}

	if reps > 0 {
		reg, err := workload.Builtin(nil)
		if err != nil {
			return nil, err
		}

		for _, name := range reg.Names() {
			ov := overrides[name]
			ov.Repetitions = reps
			overrides[name] = ov
		}
	}

	return overrides, nil
}
