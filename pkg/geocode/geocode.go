// Package geocode turns free-text location queries into coordinates via a
// closed set of provider adapters sharing one interface.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/sbscully/geocode-sqlite/internal/spatial"
)

// Provider is a single geocoding backend. Implementations return a Result
// with Matched=false for queries the service cannot locate; errors are
// reserved for transport, status, and parse failures.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a query. Multi-candidate responses
// always collapse to the first (highest-ranked) candidate.
type Result struct {
	Latitude  float64
	Longitude float64
	Matched   bool
	Address   string // provider's formatted match, when available
}

// Config is the immutable per-run provider configuration.
type Config struct {
	APIKey    string
	UserAgent string
	Domain    string // override service host (nominatim, google)

	// Bounding box passed to providers that support result biasing.
	BBox *spatial.BoundingBox

	// Generic provider settings.
	URLTemplate string
	LatPath     string
	LngPath     string
	Headers     map[string]string

	HTTPClient *http.Client
}

// httpClient returns the configured client or a default with a sane timeout.
func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
