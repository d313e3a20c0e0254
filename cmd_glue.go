package main

import (
	"github.com/spf13/cobra"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/glue"
)

var (
	glueCmd = &cobra.Command{
		Use:   "glue",
		Short: "Manage glue UIDs",
	}
	glueAssignCmd = &cobra.Command{
		Use:   "assign",
		Short: "Give every obfuscated symbol without one a UID",
		RunE:  runGlueAssign,
	}
	glueResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Clear every UID",
		RunE:  runGlueReset,
	}
)

func init() {
	glueCmd.AddCommand(glueAssignCmd, glueResetCmd)
}

func runGlueAssign(_ *cobra.Command, _ []string) error {
	g, _, err := loadGraph()
	if err != nil {
		return err
	}
	skip, err := skipper()
	if err != nil {
		return err
	}

	if err := runTask("Generating glue IDs", func(progress utils.ProgressFunc) error {
		stats, err := glue.Assign(g, skip, progress)
		if err != nil {
			return err
		}
		logger.Info("glue summary", "classes", stats.NextClass, "methods", stats.NextMethod, "fields", stats.NextField)
		return nil
	}); err != nil {
		return err
	}
	return saveGraph(g)
}

func runGlueReset(_ *cobra.Command, _ []string) error {
	g, _, err := loadGraph()
	if err != nil {
		return err
	}
	if err := runTask("Clearing UIDs", func(progress utils.ProgressFunc) error {
		glue.Reset(g, progress)
		return nil
	}); err != nil {
		return err
	}
	return saveGraph(g)
}
