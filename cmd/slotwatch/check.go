package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/slotwatch/internal/probe"
	"github.com/user/slotwatch/internal/usecase"
	"github.com/user/slotwatch/pkg/config"
)

// newCheckCmd runs a single probe cycle against one target and prints what it saw.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <target>",
		Short: "Run one availability check for a configured target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := setup(os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			target, ok := findTarget(cfg, args[0])
			if !ok {
				return fmt.Errorf("no target named %q", args[0])
			}
			p, err := probe.Build(target, probeDeps(cfg))
			if err != nil {
				return fmt.Errorf("unable to set up target %s: %w", target.Name, err)
			}
			task := usecase.NewMonitorTask(target.Name, p, nil)
			defer func() {
				if err := task.Close(); err != nil {
					slog.Warn("Failed to close probe", "target", target.Name, "error", err)
				}
			}()

			status, outcome := task.RunOnce(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", target.Name, outcome.Kind)
			if outcome.Err != nil {
				fmt.Fprintf(out, "  error: %v\n", outcome.Err)
			}
			if status != nil && status.SlotFound {
				fmt.Fprintf(out, "  %s\n", status.NotificationMessage)
			}
			return nil
		},
	}
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tSTORE\tACCOUNT")
			for _, t := range cfg.Targets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Kind, t.Store, t.Account)
			}
			return w.Flush()
		},
	}
}

func findTarget(cfg *config.Config, name string) (config.TargetConfig, bool) {
	for _, t := range cfg.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return config.TargetConfig{}, false
}
