package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/glue"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

var (
	cfg    utils.Config
	logger *slog.Logger

	configPath   string
	logLevel     string
	workers      int
	snapshotPath string
	outPath      string
	excludeA     []string
	excludeB     []string

	rootCmd = &cobra.Command{
		Use:   "gluematch",
		Short: "Match two obfuscated compilations and give their symbols shared glue names",
		Long: `gluematch propagates matches between a server and a client build of the
same obfuscated program, assigns permanent UIDs to the obfuscated symbols and
exports the result as tiny mappings.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "gluematch.yaml", "path to the YAML config file")
	flags.StringVar(&logLevel, "log", "", "log level (debug, info, warn, error)")
	flags.IntVar(&workers, "workers", 0, "parallel workers per step (0 uses GOMAXPROCS)")
	flags.StringVar(&snapshotPath, "snapshot", "", "graph snapshot to load (.json or .json.gz)")
	flags.StringVarP(&outPath, "out", "o", "", "output path")
	flags.StringArrayVar(&excludeA, "exclude-a", nil, "class name pattern, or @file of patterns, left out of glue on side a (repeatable)")
	flags.StringArrayVar(&excludeB, "exclude-b", nil, "class name pattern, or @file of patterns, left out of glue on side b (repeatable)")
	rootCmd.MarkPersistentFlagRequired("snapshot")

	rootCmd.AddCommand(matchCmd, glueCmd, exportCmd, verifyCmd)
}

// setup loads the config, applies flag overrides and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = utils.LoadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("exclude-a") {
		cfg.Exclude.A = excludeA
	}
	if flags.Changed("exclude-b") {
		cfg.Exclude.B = excludeB
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger = utils.InitLogger(utils.ParseLogLevel(cfg.LogLevel))
	return nil
}

// loadGraph loads the snapshot and replays its recorded matches. The seed
// is returned as well so the auto-match step can apply it again.
func loadGraph() (*graph.Graph, *graph.SeedMatcher, error) {
	g, seed, err := utils.LoadSnapshot(snapshotPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if err := seed.AutoMatch(g, nil); err != nil {
		return nil, nil, fmt.Errorf("replaying snapshot matches: %w", err)
	}
	return g, seed, nil
}

func excluders() (a, b utils.Excluder, err error) {
	if a, err = utils.ExcluderFor(cfg.Exclude.A); err != nil {
		return nil, nil, err
	}
	if b, err = utils.ExcluderFor(cfg.Exclude.B); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func skipper() (glue.Skipper, error) {
	a, b, err := excluders()
	if err != nil {
		return nil, err
	}
	return glue.SideSkipper(a, b), nil
}

// saveGraph writes the graph to --out, or back over the input snapshot.
func saveGraph(g *graph.Graph) error {
	path := outPath
	if path == "" {
		path = snapshotPath
	}
	if err := utils.SaveSnapshot(path, g); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	logger.Info("snapshot saved", "path", path)
	return nil
}

// runTask runs task under the progress wrapper and turns its failure
// continuation back into an error.
func runTask(name string, task func(utils.ProgressFunc) error) error {
	var failure error
	utils.RunProgressTask(logger, name, task,
		func() { logger.Info(name + " finished") },
		func(err error) {
			logger.Error(name+" failed", "error", err)
			failure = err
		},
	)
	return failure
}
