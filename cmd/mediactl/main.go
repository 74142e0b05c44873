// Command mediactl runs operational tasks against a mediahub deployment.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/mediahub-backend/internal/app"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mediactl",
		Short:        "Operational commands for mediahub",
		SilenceUsage: true,
	}
	root.AddCommand(
		newTagsCmd(),
		newRepairCmd(),
		newCollectionCmd(),
		newFingerprintCmd(),
		newTokenCmd(),
	)
	return root
}

// env loads the logger and config the service binaries use.
func env() (*logger.Logger, app.Config, error) {
	log, err := app.NewLogger()
	if err != nil {
		return nil, app.Config{}, err
	}
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, app.Config{}, err
	}
	return log, cfg, nil
}
