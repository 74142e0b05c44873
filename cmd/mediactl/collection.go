package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/mediahub-backend/internal/app"
	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
	"github.com/yungbote/mediahub-backend/internal/platform/qdrant"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "collection", Short: "Manage the Qdrant collection"}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the vector collection or check an existing one's dimension",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			if _, err := app.ResolveMediaIndex(cmd.Context(), log, 0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collection %q ready\n", envutil.String("QDRANT_COLLECTION", qdrant.DefaultCollection))
			return nil
		},
	})
	return cmd
}
