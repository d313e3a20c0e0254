package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/glue"
	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/tiny"
)

var (
	formatName string
	compressed bool

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Assign missing UIDs and write glue mappings",
		RunE:  runExport,
	}
)

func init() {
	flags := exportCmd.Flags()
	flags.StringVar(&formatName, "format", "", "mappings format (v1 or v2)")
	flags.BoolVar(&compressed, "gzip", false, "gzip the mappings file")
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	if outPath == "" {
		return errors.New("export needs --out")
	}
	if cmd.Flags().Changed("format") {
		cfg.Mappings.Format = formatName
	}
	if cmd.Flags().Changed("gzip") {
		cfg.Mappings.Compressed = compressed
	}
	format, err := tiny.ParseFormat(cfg.Mappings.Format)
	if err != nil {
		return err
	}
	server, err := cfg.Server()
	if err != nil {
		return err
	}

	g, _, err := loadGraph()
	if err != nil {
		return err
	}
	a, b, err := excluders()
	if err != nil {
		return err
	}
	if _, err := glue.Assign(g, glue.SideSkipper(a, b), nil); err != nil {
		return fmt.Errorf("assigning glue: %w", err)
	}

	opts := tiny.ExportOptions{
		Server: server,
		Prefixes: glue.Prefixes{
			Class:  cfg.UIDPrefix.Class,
			Method: cfg.UIDPrefix.Method,
			Field:  cfg.UIDPrefix.Field,
		},
		SkipServer: a,
		SkipClient: b,
	}
	if server == graph.SideB {
		opts.SkipServer, opts.SkipClient = b, a
	}

	w, err := tiny.Create(outPath, format, cfg.Mappings.Compressed, tiny.Namespaces{
		Glue:   cfg.Namespaces.Glue,
		Server: cfg.Namespaces.Server,
		Client: cfg.Namespaces.Client,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	return runTask("Exporting glue", func(progress utils.ProgressFunc) error {
		opts.Progress = progress
		return tiny.Export(g, w, opts)
	})
}
