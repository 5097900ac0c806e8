package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maltedev/listing-scraper/internal/config"
	"github.com/maltedev/listing-scraper/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "listing-scraper",
	Short:         "listing-scraper collects product listings from paginated search results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			loaded.Logging.Level = logLevel
		}
		if flags.Changed("log-format") {
			loaded.Logging.Format = logFormat
		}
		if flags.Changed("log-file") {
			loaded.Logging.File = logFile
		}

		w, closer, err := logger.Output(loaded.Logging.File, logger.Rotation{
			MaxSizeMB:  loaded.Logging.MaxSizeMB,
			MaxBackups: loaded.Logging.MaxBackups,
		})
		if err != nil {
			return err
		}

		cfg = loaded
		log = logger.New(cfg.Logging.Level, cfg.Logging.Format, w)
		logCloser = closer
		slog.SetDefault(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&logFile, "log-file", "", "also append logs to this file")
}

func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

// ExecuteContext runs the CLI and exits with status 1 on any returned error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeLog()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
