package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/mappings"
)

var (
	stepNames   []string
	untilStable bool
	maxRounds   int
	reportPath  string
	metricsPath string

	matchCmd = &cobra.Command{
		Use:   "match",
		Short: "Propagate matches between the two sides",
		Long: `Replays the matches recorded in the snapshot, then runs the selected matching
steps once, or every step followed by usage matching until nothing changes.`,
		RunE: runMatch,
	}
)

func init() {
	flags := matchCmd.Flags()
	flags.StringSliceVar(&stepNames, "steps", nil, "steps to run (auto-match, match-fix, usage-match, detach-wrong-methods, line-number-match, hierarchy-method-match)")
	flags.BoolVar(&untilStable, "until-stable", false, "run all steps, then usage-match until no counts change")
	flags.IntVar(&maxRounds, "max-rounds", 0, "cap on usage-match rounds with --until-stable")
	flags.StringVar(&reportPath, "report", "", "write a class match report to this file")
	flags.StringVar(&metricsPath, "metrics-out", "", "write step metrics in Prometheus text format to this file")
}

func runMatch(cmd *cobra.Command, _ []string) error {
	names := cfg.Steps
	if cmd.Flags().Changed("steps") {
		names = stepNames
	}
	steps, err := mappings.ParseSteps(names)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-rounds") {
		cfg.MaxRounds = maxRounds
	}

	g, seed, err := loadGraph()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	matcher := mappings.NewMatcher(g, utils.NewParallelRunner(cfg.Workers), seed, logger, mappings.NewMetrics(reg))
	matcher.MaxRounds = cfg.MaxRounds

	ctx := cmd.Context()

	var result mappings.Result
	err = runTask("matching", func(progress utils.ProgressFunc) error {
		var err error
		if untilStable {
			result, err = matcher.RunUntilStable(ctx, progress)
		} else {
			result, err = matcher.RunSteps(ctx, steps, progress)
		}
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("match result",
		"classes", result.Classes,
		"methods", result.Methods,
		"fields", result.Fields,
		"retracted", result.Retracted,
		"dropped", result.Dropped,
		"misses", len(result.Misses),
		"rounds", result.Rounds,
	)

	if err := saveGraph(g); err != nil {
		return err
	}
	if reportPath != "" {
		if err := utils.GenerateMatchReport(g, reportPath); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if metricsPath != "" {
		if err := writeMetrics(reg, metricsPath); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func writeMetrics(reg *prometheus.Registry, path string) (err error) {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(file, mf); err != nil {
			return err
		}
	}
	return nil
}
