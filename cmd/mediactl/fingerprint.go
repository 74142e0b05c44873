package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
)

func newFingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "fingerprint", Short: "Inspect perceptual fingerprints"}

	cmd.AddCommand(&cobra.Command{
		Use:   "compute FILE...",
		Short: "Print the fingerprint of each image file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fingerprint.SetMaxPixels(int64(envutil.Int("MAX_IMAGE_PIXELS", 0)))
			rows := [][]string{{"File", "Format", "Frames", "Fingerprint"}}
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				d, err := fingerprint.Decode(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fp, err := fingerprint.Fingerprint(d)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				rows = append(rows, []string{filepath.Base(path), d.Format, strconv.Itoa(d.FrameCount()), fp})
			}
			return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(rows).WithWriter(cmd.OutOrStdout()).Render()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "distance A B",
		Short: "Hamming distance between two fingerprints",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := fingerprint.Distance(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	})
	return cmd
}
