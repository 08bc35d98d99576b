package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gazette/internal/logger"
	"gazette/internal/scheduler"
)

// NewScheduleCmd creates the schedule command for recurring pipeline runs.
func NewScheduleCmd() *cobra.Command {
	var cronSpec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the newsletter pipeline on a recurring schedule",
		Long: `Run the generation pipeline on a cron schedule until interrupted.

A tick that arrives while a previous run is still in flight is skipped;
pipeline runs do not overlap.

Examples:
  # Use the schedule from configuration (default: 07:00 daily)
  gazette schedule

  # Override the cron spec
  gazette schedule --cron "0 6 * * MON-FRI"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			spec := cfg.Scheduler.Cron
			if cronSpec != "" {
				spec = cronSpec
			}

			p, db, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			sched, err := scheduler.New(spec, func(ctx context.Context) error {
				_, runErr := p.Run(ctx)
				return runErr
			})
			if err != nil {
				return err
			}

			sched.Start()
			logger.Info("Scheduler started", "cron", spec)
			fmt.Printf("Pipeline scheduled (%s); press Ctrl+C to stop\n", spec)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			<-sched.Stop().Done()
			logger.Info("Scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "", "cron spec override (default from config)")

	return cmd
}
