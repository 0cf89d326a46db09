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

const googleDefaultDomain = "maps.googleapis.com"

// Google geocodes via the Google Geocoding API.
type Google struct {
	domain string
	key    string
	bbox   *spatial.BoundingBox
	hc     *http.Client
}

// NewGoogle creates a Google provider. Missing keys fail here, before any
// row is processed.
func NewGoogle(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("geocode: google requires an API key (--api-key or GEOCODE_KEYS_GOOGLE)")
	}
	domain := cfg.Domain
	if domain == "" {
		domain = googleDefaultDomain
	}
	return &Google{
		domain: domain,
		key:    cfg.APIKey,
		bbox:   cfg.BBox,
		hc:     cfg.httpClient(),
	}, nil
}

// Name implements Provider.
func (p *Google) Name() string { return "google" }

// googleResponse is the JSON response from the Google Geocoding API.
type googleResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"`
}

// Geocode implements Provider.
func (p *Google) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"address": {query},
		"key":     {p.key},
	}
	if p.bbox != nil {
		// Bounds bias the ranking; the engine still enforces the box itself.
		params.Set("bounds", fmt.Sprintf("%f,%f|%f,%f",
			p.bbox.MinLat, p.bbox.MinLng, p.bbox.MaxLat, p.bbox.MaxLng))
	}
	reqURL := fmt.Sprintf("https://%s/maps/api/geocode/json?%s", p.domain, params.Encode())

	body, err := getJSON(ctx, p.hc, p.Name(), reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseErr(p.Name(), err)
	}

	switch resp.Status {
	case "OK":
		// fall through to candidate extraction
	case "ZERO_RESULTS":
		return &Result{Matched: false}, nil
	default:
		// OVER_QUERY_LIMIT, REQUEST_DENIED, INVALID_REQUEST and friends are
		// API-level rejections even though the HTTP status is 200.
		return nil, &ProviderError{Provider: p.Name(), Kind: KindStatus, Err: eris.Errorf("api status %s", resp.Status)}
	}

	if len(resp.Results) == 0 {
		return &Result{Matched: false}, nil
	}

	best := resp.Results[0]
	return &Result{
		Latitude:  best.Geometry.Location.Lat,
		Longitude: best.Geometry.Location.Lng,
		Matched:   true,
		Address:   best.FormattedAddress,
	}, nil
}
