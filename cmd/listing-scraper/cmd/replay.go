package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maltedev/listing-scraper/internal/replay"
)

var replayOpts runFlags

func init() {
	replayOpts.register(replayCmd)
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <snapshot dir> [--pages <n>] [--output <file.csv>]",
	Short: "Runs the scraper against saved HTML pages, one file per listing page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := replayOpts.apply(cmd); err != nil {
			return err
		}

		driver, err := replay.NewDriver(args[0])
		if err != nil {
			return fmt.Errorf("failed to load snapshots: %w", err)
		}
		log.Info("loaded snapshots", "dir", args[0], "pages", driver.Len())

		// Snapshots are static, so there is nothing to wait for after
		// navigating or clicking.
		t := timings()
		t.NavigationSettle = 0
		t.PageSettle = 0

		return runOnce(cmd, driver, nil, t)
	},
}
