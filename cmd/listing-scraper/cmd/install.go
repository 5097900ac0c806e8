package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maltedev/listing-scraper/internal/browser"
)

var installVerbose bool

func init() {
	installCmd.Flags().BoolVarP(&installVerbose, "verbose", "v", false, "print installer output")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Installs the playwright driver and chromium.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := browser.Install(installVerbose); err != nil {
			return err
		}
		log.Info("playwright chromium installed")
		return nil
	},
}
