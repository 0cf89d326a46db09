package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

var genericCmd = &cobra.Command{
	Use:   "generic <connection> <table>",
	Short: "Geocode via an arbitrary templated GET endpoint",
	Long: `Geocode against any JSON-over-GET endpoint. The URL template must contain
a {query} placeholder; coordinates are extracted with gjson paths, e.g.

  geocode-sqlite generic places.db venues \
    --url-template "https://photon.example.net/api?q={query}&limit=1" \
    --lat-path "features.0.geometry.coordinates.1" \
    --lng-path "features.0.geometry.coordinates.0"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		urlTemplate, _ := cmd.Flags().GetString("url-template")
		latPath, _ := cmd.Flags().GetString("lat-path")
		lngPath, _ := cmd.Flags().GetString("lng-path")
		headers, _ := cmd.Flags().GetStringArray("header")

		hdrs, err := parseHeaders(headers)
		if err != nil {
			return err
		}
		return runGeocode(cmd, args, "generic", geocode.Config{
			URLTemplate: urlTemplate,
			LatPath:     latPath,
			LngPath:     lngPath,
			Headers:     hdrs,
		})
	},
}

// parseHeaders parses repeated "Name: Value" flags.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, eris.Errorf("invalid header %q, want Name: Value", h)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

func init() {
	addCommonFlags(genericCmd)
	genericCmd.Flags().String("url-template", "", "GET URL with a {query} placeholder (required)")
	genericCmd.Flags().String("lat-path", "", "gjson path to the latitude in the response (required)")
	genericCmd.Flags().String("lng-path", "", "gjson path to the longitude in the response (required)")
	genericCmd.Flags().StringArray("header", nil, "extra request header as Name: Value (repeatable)")
	rootCmd.AddCommand(genericCmd)
}
