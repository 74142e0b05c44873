package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/yungbote/mediahub-backend/internal/app"
	"github.com/yungbote/mediahub-backend/internal/data/repos"
	"github.com/yungbote/mediahub-backend/internal/jobs"
	"github.com/yungbote/mediahub-backend/internal/services"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tags", Short: "Manage the tag vocabulary"}

	var (
		file    string
		enqueue bool
	)
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Load a tag file (.yaml or .txt) into the vocabulary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, cfg, err := env()
			if err != nil {
				return err
			}
			defer log.Sync()

			if enqueue {
				if !cfg.RedisEnabled() {
					return fmt.Errorf("--enqueue requires REDIS_ADDR")
				}
				q := jobs.NewQueue(log, asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
				defer q.Close()
				if err := q.EnqueueTagsRefresh(cmd.Context(), file); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued tags:refresh for %s\n", file)
				return nil
			}

			names, err := jobs.LoadTagFile(file)
			if err != nil {
				return err
			}
			db, err := app.OpenDB(log, cfg)
			if err != nil {
				return err
			}
			cache, err := services.NewRedisTagCache(log)
			if err != nil {
				return err
			}
			tags := services.NewTagService(log, repos.New(db, log).Tags, cache, nil)
			n, err := tags.Refresh(cmd.Context(), names)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vocabulary refreshed: %d tags from %s\n", n, file)
			return nil
		},
	}
	refresh.Flags().StringVarP(&file, "file", "f", "tags.yaml", "Tag file (.yaml, .yml or .txt)")
	refresh.Flags().BoolVar(&enqueue, "enqueue", false, "Hand the refresh to the worker instead of running it here")

	cmd.AddCommand(refresh)
	return cmd
}
