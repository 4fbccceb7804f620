package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"modsplit/internal/extractor"
	"modsplit/internal/graph"
	"modsplit/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	graphUnits bool
	graphOut   string
)

func init() {
	graphCmd.Flags().BoolVar(&graphUnits, "units", false, "Show the generated unit graph instead of the type graph")
	graphCmd.Flags().StringVarP(&graphOut, "out", "o", "", "Write the DOT output to a file instead of stdout")
}

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Print the dependency graph of a file in Graphviz DOT format",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		logger, cleanup := initLogger()
		defer cleanup()

		cfg, _ := loadConfig(configDir(path))
		ext, err := extractor.NewExtractor("rust")
		if err != nil {
			log.Fatalf("Failed to create extractor: %v", err)
		}
		prog, err := ext.ExtractFromFile(path)
		if err != nil {
			log.Fatalf("Failed to parse %s: %v", path, err)
		}

		res, err := pipeline.New(cfg, logger).Run(context.Background(), prog)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}

		rep, name := res.TypeGraph, "Types"
		if graphUnits {
			rep, name = res.UnitGraph, "Units"
		}
		dot := graph.FromExport(rep.Graph).DOT(name, rep.GraphCycles())

		if graphOut == "" {
			fmt.Print(dot)
		} else if err := os.WriteFile(graphOut, []byte(dot), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", graphOut, err)
		}

		for _, c := range rep.Cycles {
			fmt.Fprintf(os.Stderr, "🔁 cycle %s (suggested break: %s -> %s)\n", c, c.Break.From, c.Break.To)
		}
	},
}
