package main

import (
	"github.com/spf13/cobra"

	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

var mapboxCmd = &cobra.Command{
	Use:   "mapbox <connection> <table>",
	Short: "Geocode via the Mapbox Geocoding API",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey, _ := cmd.Flags().GetString("api-key")
		return runGeocode(cmd, args, "mapbox", geocode.Config{
			APIKey: resolveKey(apiKey, cfg.Keys.Mapbox),
		})
	},
}

func init() {
	addCommonFlags(mapboxCmd)
	mapboxCmd.Flags().StringP("api-key", "k", "", "Mapbox access token (or GEOCODE_KEYS_MAPBOX)")
	rootCmd.AddCommand(mapboxCmd)
}
