package main

import (
	"github.com/spf13/cobra"

	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

var bingCmd = &cobra.Command{
	Use:   "bing <connection> <table>",
	Short: "Geocode via the Bing Maps Locations API",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey, _ := cmd.Flags().GetString("api-key")
		return runGeocode(cmd, args, "bing", geocode.Config{
			APIKey: resolveKey(apiKey, cfg.Keys.Bing),
		})
	},
}

func init() {
	addCommonFlags(bingCmd)
	bingCmd.Flags().StringP("api-key", "k", "", "Bing Maps key (or GEOCODE_KEYS_BING)")
	rootCmd.AddCommand(bingCmd)
}
