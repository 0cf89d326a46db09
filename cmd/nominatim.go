package main

import (
	"github.com/spf13/cobra"

	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

var nominatimCmd = &cobra.Command{
	Use:   "nominatim <connection> <table>",
	Short: "Geocode via OSM Nominatim",
	Long: `Geocode against a Nominatim instance. The public
nominatim.openstreetmap.org instance requires an identifying --user-agent
per its usage policy; point --domain at a self-hosted instance to skip the
fair-use delay entirely (--delay 0).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userAgent, _ := cmd.Flags().GetString("user-agent")
		domain, _ := cmd.Flags().GetString("domain")
		if userAgent == "" {
			userAgent = cfg.Geocode.UserAgent
		}
		return runGeocode(cmd, args, "nominatim", geocode.Config{
			UserAgent: userAgent,
			Domain:    domain,
		})
	},
}

func init() {
	addCommonFlags(nominatimCmd)
	nominatimCmd.Flags().String("user-agent", "", "identifying user agent (required by the public instance)")
	nominatimCmd.Flags().String("domain", "", "Nominatim host (default nominatim.openstreetmap.org)")
	rootCmd.AddCommand(nominatimCmd)
}
