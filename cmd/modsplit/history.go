package main

import (
	"context"
	"fmt"
	"log"

	"modsplit/internal/storage"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRun   string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the units and warnings of one run")
}

var historyCmd = &cobra.Command{
	Use:   "history [source]",
	Short: "List past runs recorded in the history database",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := initStore()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		if historyRun != "" {
			snap, err := store.LoadRun(ctx, historyRun)
			if err != nil {
				log.Fatalf("Failed to load run: %v", err)
			}
			printRun(snap)
			return
		}

		source := ""
		if len(args) > 0 {
			source = args[0]
		}
		runs, err := store.ListRuns(ctx, source, historyLimit)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("📭 No runs recorded yet.")
			return
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  %-30s units=%d warnings=%d cycles=%d\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ID, r.Source, r.Units, r.Warnings, r.Cycles)
		}
	},
}

func printRun(snap *storage.Snapshot) {
	r := snap.Run
	fmt.Printf("📄 %s (run %s, source %s)\n", r.Source, r.ID, r.SourceHash)
	for _, u := range snap.Units {
		fmt.Printf("  %-40s %-10s %5d lines\n", u.Path, u.Role, u.Lines)
	}
	for _, e := range snap.Graph.Edges {
		fmt.Printf("  %s -> %s\n", e.From, e.To)
	}
	for _, w := range snap.Warnings {
		fmt.Printf("  ⚠️  %s\n", w)
	}
}
