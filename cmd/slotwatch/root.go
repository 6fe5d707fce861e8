package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/slotwatch/pkg/config"
	"github.com/user/slotwatch/pkg/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "slotwatch",
		Short: "Watch grocery delivery sites for open delivery slots",
		Long: `slotwatch polls each configured grocery storefront with a headless browser
and raises a notification whenever delivery slot availability changes.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context())
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Environment overrides from .env are optional.
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "slotwatch.yaml", "path to configuration file (YAML)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Start the monitor and the status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context())
		},
	})
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newTargetsCmd())
}

// setup loads the configuration and installs the process logger. The returned
// closer releases the run log file, if one was opened.
func setup(console io.Writer) (*config.Config, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	closer := func() {}
	logOut := console
	if cfg.LogDir != "" {
		f, err := logger.OpenRunLog(cfg.LogDir, time.Now())
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		closer = func() { _ = f.Close() }
		logOut = io.MultiWriter(console, f)
	}
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(logOut, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())
	return cfg, closer, nil
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
