package main

import (
	"github.com/spf13/cobra"

	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

var googleCmd = &cobra.Command{
	Use:   "google <connection> <table>",
	Short: "Geocode via the Google Geocoding API",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey, _ := cmd.Flags().GetString("api-key")
		domain, _ := cmd.Flags().GetString("domain")
		return runGeocode(cmd, args, "google", geocode.Config{
			APIKey: resolveKey(apiKey, cfg.Keys.Google),
			Domain: domain,
		})
	},
}

func init() {
	addCommonFlags(googleCmd)
	googleCmd.Flags().StringP("api-key", "k", "", "Google API key (or GEOCODE_KEYS_GOOGLE)")
	googleCmd.Flags().String("domain", "", "API host (default maps.googleapis.com)")
	rootCmd.AddCommand(googleCmd)
}
