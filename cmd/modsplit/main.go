package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"modsplit/internal/config"
	"modsplit/internal/logging"
	"modsplit/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "modsplit",
		Short: "Split oversized source files into cohesive modules",
	}
	configPath string
	dbPath     string
	logFile    string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default: nearest "+config.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", filepath.Join(".modsplit", "runs.db"), "Path to the run history database (SQLite)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also append JSON logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
}

// initLogger builds the shared logger from the persistent flags.
func initLogger() (*slog.Logger, func()) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger, cleanup, err := logging.Setup(logFile, level)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	return logger, cleanup
}

// loadConfig reads --config, or the nearest config file above dir, or
// falls back to the defaults.
func loadConfig(dir string) (*config.Config, string) {
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		return cfg, configPath
	}
	cfg, path, err := config.FindAndLoad(dir)
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), ""
	}
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", path, err)
	}
	return cfg, path
}

// initStore opens the run history database, creating its directory.
func initStore() (*storage.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return storage.NewSQLiteStore(dbPath)
}

// configDir is where config lookup starts for a target path.
func configDir(target string) string {
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		return target
	}
	return filepath.Dir(target)
}
