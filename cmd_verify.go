package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/mappings"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "List matched methods whose bodies or line numbers disagree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		g, _, err := loadGraph()
		if err != nil {
			return err
		}
		matcher := mappings.NewMatcher(g, utils.NewParallelRunner(cfg.Workers), nil, logger, nil)
		mismatches, err := matcher.Verify(cmd.Context())
		if err != nil {
			return err
		}
		if len(mismatches) > 0 {
			return fmt.Errorf("%d matched methods disagree", len(mismatches))
		}
		logger.Info("all matched methods agree")
		return nil
	},
}
