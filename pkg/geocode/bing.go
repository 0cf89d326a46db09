package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

const bingLocationsURL = "https://dev.virtualearth.net/REST/v1/Locations"

// Bing geocodes via the Bing Maps Locations REST API.
type Bing struct {
	key string
	hc  *http.Client
}

// NewBing creates a Bing provider.
func NewBing(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("geocode: bing requires an API key (--api-key or GEOCODE_KEYS_BING)")
	}
	return &Bing{key: cfg.APIKey, hc: cfg.httpClient()}, nil
}

// Name implements Provider.
func (p *Bing) Name() string { return "bing" }

// bingResponse is the JSON response from the Bing Locations API. Coordinates
// come back as a [lat, lng] pair.
type bingResponse struct {
	ResourceSets []struct {
		Resources []struct {
			Name  string `json:"name"`
			Point struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"point"`
		} `json:"resources"`
	} `json:"resourceSets"`
}

// Geocode implements Provider.
func (p *Bing) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"query":      {query},
		"key":        {p.key},
		"maxResults": {"1"},
	}
	reqURL := bingLocationsURL + "?" + params.Encode()

	body, err := getJSON(ctx, p.hc, p.Name(), reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp bingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseErr(p.Name(), err)
	}

	if len(resp.ResourceSets) == 0 || len(resp.ResourceSets[0].Resources) == 0 {
		return &Result{Matched: false}, nil
	}

	best := resp.ResourceSets[0].Resources[0]
	if len(best.Point.Coordinates) < 2 {
		return nil, parseErr(p.Name(), eris.New("resource missing point coordinates"))
	}

	return &Result{
		Latitude:  best.Point.Coordinates[0],
		Longitude: best.Point.Coordinates[1],
		Matched:   true,
		Address:   best.Name,
	}, nil
}
