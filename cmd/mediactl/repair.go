package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/mediahub-backend/internal/app"
)

func newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "repair", Short: "Re-run failed post-commit side effects"}

	var (
		minAge  time.Duration
		limit   int
		enqueue bool
	)
	scan := &cobra.Command{
		Use:   "scan",
		Short: "Queue repairs for media whose blob write or vector insert never settled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, cfg, err := env()
			if err != nil {
				return err
			}
			defer log.Sync()
			if !cfg.RedisEnabled() {
				return fmt.Errorf("repairs run on the worker; REDIS_ADDR is required")
			}

			core, err := app.NewCore(cmd.Context(), log, cfg)
			if err != nil {
				return err
			}
			defer core.Close()

			if enqueue {
				if err := core.Queue.EnqueueRepairScan(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "queued media:repair_scan")
				return nil
			}
			n, err := core.Ingest.EnqueueDegraded(cmd.Context(), minAge, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d repairs\n", n)
			return nil
		},
	}
	scan.Flags().DurationVar(&minAge, "min-age", 10*time.Minute, "Skip media younger than this")
	scan.Flags().IntVar(&limit, "limit", 500, "Maximum rows to queue")
	scan.Flags().BoolVar(&enqueue, "enqueue", false, "Queue a media:repair_scan task instead of scanning here")

	cmd.AddCommand(scan)
	return cmd
}
