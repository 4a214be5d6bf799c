// Package main provides the geoarchive CLI entry point.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/geoarchive/geoarchive/internal/config"
	"github.com/geoarchive/geoarchive/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	humanOutput bool
	configPath  string
	logLevel    string
)

// cfg is loaded before any command runs.
var cfg *config.Config

// log is replaced by the configured logger once cfg is loaded.
var log = zerolog.Nop()

func main() {
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	)
	if err != nil {
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "geoarchive",
	Short: "Archive USGS reports across ScienceBase, Zotero and the GeoKB",
	Long: `geoarchive moves report collections into the USGS GeoArchive.

Core features:
  - Point every Zotero item at its permanent w3id.org URL
  - Process NI 43-101 technical reports from a ScienceBase dropbox
  - Look up GeoKB reference entities
  - Checksum files and extract PDF page text to parquet

Configuration is read from the environment (and a .env file), then from
~/.config/geoarchive/config.yml. All commands output JSON by default.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads .env, the config file and the environment before any
// command runs. Service credentials are checked by the commands that need them.
func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	cfg = c
	log = logging.Stderr(cfg.LogLevel)
	return nil
}
