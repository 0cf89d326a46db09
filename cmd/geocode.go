package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sbscully/geocode-sqlite/internal/engine"
	"github.com/sbscully/geocode-sqlite/internal/location"
	"github.com/sbscully/geocode-sqlite/internal/spatial"
	"github.com/sbscully/geocode-sqlite/internal/store"
	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

// runFlags holds the common flag values shared by every provider subcommand.
type runFlags struct {
	location  string
	delay     float64
	latitude  string
	longitude string
	bbox      []float64
	spatial   bool
	limit     int
	force     bool
}

// addCommonFlags registers the flags every provider subcommand carries.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("location", "l", "", "location template, e.g. \"{address}, {city}, {state}\" (default from config)")
	cmd.Flags().Float64P("delay", "d", -1, "seconds between requests; 0 disables throttling (default from config)")
	cmd.Flags().String("latitude", "", "latitude column name (default \"latitude\")")
	cmd.Flags().String("longitude", "", "longitude column name (default \"longitude\")")
	cmd.Flags().Float64Slice("bbox", nil, "discard results outside min_lat,min_lng,max_lat,max_lng")
	cmd.Flags().Bool("spatialite", false, "also write an EWKB point geometry column")
	cmd.Flags().Int("limit", 0, "stop after this many rows (0 = all pending)")
	cmd.Flags().Bool("force", false, "re-geocode rows that already have coordinates")
}

// commonFlags reads the shared flags, filling unset values from config.
func commonFlags(cmd *cobra.Command) *runFlags {
	f := &runFlags{}
	f.location, _ = cmd.Flags().GetString("location")
	f.delay, _ = cmd.Flags().GetFloat64("delay")
	f.latitude, _ = cmd.Flags().GetString("latitude")
	f.longitude, _ = cmd.Flags().GetString("longitude")
	f.bbox, _ = cmd.Flags().GetFloat64Slice("bbox")
	f.spatial, _ = cmd.Flags().GetBool("spatialite")
	f.limit, _ = cmd.Flags().GetInt("limit")
	f.force, _ = cmd.Flags().GetBool("force")
	return f
}

// httpClient builds the shared outbound transport from config.
func httpClient() *http.Client {
	timeout := time.Duration(cfg.HTTP.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// runGeocode is the shared body of every provider subcommand. Configuration
// problems (bad bbox, empty template, provider preconditions) return before
// any row is read; a completed run with per-row failures returns a non-zero
// exit through Summary.Err.
func runGeocode(cmd *cobra.Command, args []string, providerName string, pcfg geocode.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, table := args[0], args[1]
	f := commonFlags(cmd)

	// Flag defaults come from config so they can live in config.yaml or
	// GEOCODE_* environment variables.
	if f.location == "" {
		f.location = cfg.Geocode.Location
	}
	if f.delay < 0 {
		f.delay = cfg.Geocode.Delay
	}
	if f.latitude == "" {
		f.latitude = cfg.Geocode.LatitudeColumn
	}
	if f.longitude == "" {
		f.longitude = cfg.Geocode.LongitudeColumn
	}

	tmpl, err := location.Parse(f.location)
	if err != nil {
		return err
	}
	if len(tmpl.Columns()) == 0 {
		zap.L().Warn("location template references no columns; every row gets the same query",
			zap.String("template", tmpl.String()))
	}

	var bbox *spatial.BoundingBox
	if len(f.bbox) > 0 {
		bbox, err = spatial.ParseBBox(f.bbox)
		if err != nil {
			return err
		}
	}

	pcfg.BBox = bbox
	if pcfg.HTTPClient == nil {
		pcfg.HTTPClient = httpClient()
	}

	provider, err := geocode.New(providerName, pcfg)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, conn)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	cols := store.Columns{
		Latitude:  f.latitude,
		Longitude: f.longitude,
		Geocoder:  "geocoder",
	}
	if f.spatial {
		cols.Geometry = "geometry"
	}

	eng := engine.New(st, provider, tmpl, engine.Options{
		Table:   table,
		Columns: cols,
		Delay:   f.delay,
		BBox:    bbox,
		Force:   f.force,
		Limit:   f.limit,
	})

	summary, err := eng.Run(ctx)
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		return eris.Wrap(err, "geocode run")
	}
	return summary.Err()
}

// printSummary reports the run outcome on stdout.
func printSummary(s *engine.Summary) {
	fmt.Printf("Processed %d rows: %d geocoded, %d not found, %d failed\n",
		s.Processed, s.Geocoded, s.NotFound, s.Failed)
}

// resolveKey prefers the flag value over the configured key.
func resolveKey(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
