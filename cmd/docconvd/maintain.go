package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentflow/docconv/pkg/config"
	"github.com/talentflow/docconv/pkg/logging"
)

// newMaintainCmd runs one maintenance pass and exits. Intended for cron or
// a Kubernetes CronJob; the serve process does not schedule maintenance
// itself.
func newMaintainCmd() *cobra.Command {
	var configPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run one cache maintenance pass (eviction sweep and popularity prune)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logging.Setup(logging.Config{
				Level:  logging.LogLevel(cfg.Log.Level),
				Pretty: cfg.Log.Pretty,
				Output: cmd.ErrOrStderr(),
			})

			svc, cleanup, err := newService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := svc.PerformMaintenance(ctx); err != nil {
				return fmt.Errorf("maintenance: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "docconv.yaml", "path to config file")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall maintenance deadline")
	return cmd
}
