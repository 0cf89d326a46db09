package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sbscully/geocode-sqlite/internal/spatial"
)

const mapboxPlacesURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Mapbox geocodes via the Mapbox Geocoding v5 places endpoint.
type Mapbox struct {
	token string
	bbox  *spatial.BoundingBox
	hc    *http.Client
}

// NewMapbox creates a Mapbox provider.
func NewMapbox(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("geocode: mapbox requires an access token (--api-key or GEOCODE_KEYS_MAPBOX)")
	}
	return &Mapbox{token: cfg.APIKey, bbox: cfg.BBox, hc: cfg.httpClient()}, nil
}

// Name implements Provider.
func (p *Mapbox) Name() string { return "mapbox" }

// mapboxResponse is the JSON response from the Mapbox places endpoint.
// Feature centers come back as [lng, lat].
type mapboxResponse struct {
	Features []struct {
		Center    []float64 `json:"center"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

// Geocode implements Provider.
func (p *Mapbox) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"access_token": {p.token},
		"limit":        {"1"},
	}
	if p.bbox != nil {
		// Mapbox filters server-side; order is minLng,minLat,maxLng,maxLat.
		params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f",
			p.bbox.MinLng, p.bbox.MinLat, p.bbox.MaxLng, p.bbox.MaxLat))
	}
	reqURL := fmt.Sprintf("%s/%s.json?%s", mapboxPlacesURL, url.PathEscape(query), params.Encode())

	body, err := getJSON(ctx, p.hc, p.Name(), reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp mapboxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseErr(p.Name(), err)
	}

	if len(resp.Features) == 0 {
		return &Result{Matched: false}, nil
	}

	best := resp.Features[0]
	if len(best.Center) < 2 {
		return nil, parseErr(p.Name(), eris.New("feature missing center coordinates"))
	}

	return &Result{
		Latitude:  best.Center[1],
		Longitude: best.Center[0],
		Matched:   true,
		Address:   best.PlaceName,
	}, nil
}
