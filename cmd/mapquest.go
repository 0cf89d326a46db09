package main

import (
	"github.com/spf13/cobra"

	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

// MapQuest has two endpoints sharing one response schema: the licensed one
// and the open-data one backed by OSM. Each gets its own subcommand.
func newMapQuestCmd(name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <connection> <table>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey, _ := cmd.Flags().GetString("api-key")
			return runGeocode(cmd, args, name, geocode.Config{
				APIKey: resolveKey(apiKey, cfg.Keys.MapQuest),
			})
		},
	}

	addCommonFlags(cmd)
	cmd.Flags().StringP("api-key", "k", "", "MapQuest key (or GEOCODE_KEYS_MAPQUEST)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newMapQuestCmd("mapquest", "Geocode via the MapQuest Geocoding API"))
	rootCmd.AddCommand(newMapQuestCmd("open-mapquest", "Geocode via the open-data MapQuest endpoint"))
}
