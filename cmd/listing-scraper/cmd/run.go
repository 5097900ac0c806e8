package cmd

import (
	"github.com/spf13/cobra"
)

var runOpts runFlags

func init() {
	runOpts.register(runCmd)
	runCmd.Flags().Bool("headed", false, "show the browser window")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--url <listing url>] [--pages <n>] [--output <file.csv>]",
	Short: "Scrapes a live listing with a chromium browser.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runOpts.apply(cmd); err != nil {
			return err
		}
		if headed, _ := cmd.Flags().GetBool("headed"); headed {
			cfg.Browser.Headless = false
		}

		return runOnce(cmd, playwrightDriver(), nil, timings())
	},
}
