package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"modsplit/internal/config"

	"github.com/spf13/cobra"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		path := filepath.Join(dir, config.FileName)
		if _, err := os.Stat(path); err == nil && !initForce {
			log.Fatalf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("📝 Wrote %s\n", path)
	},
}
