package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const nominatimDefaultDomain = "nominatim.openstreetmap.org"

// Nominatim geocodes against an OSM Nominatim instance. The public instance
// requires an identifying user agent; self-hosted instances are reached by
// overriding the domain.
type Nominatim struct {
	domain    string
	userAgent string
	hc        *http.Client
}

// NewNominatim creates a Nominatim provider. A user agent is mandatory per
// the public instance's usage policy.
func NewNominatim(cfg Config) (Provider, error) {
	if cfg.UserAgent == "" {
		return nil, eris.New("geocode: nominatim requires a user agent (--user-agent)")
	}
	domain := cfg.Domain
	if domain == "" {
		domain = nominatimDefaultDomain
	}
	return &Nominatim{
		domain:    domain,
		userAgent: cfg.UserAgent,
		hc:        cfg.httpClient(),
	}, nil
}

// Name implements Provider.
func (p *Nominatim) Name() string { return "nominatim" }

// nominatimPlace is one entry of the Nominatim search response. Coordinates
// come back as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Provider.
func (p *Nominatim) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	reqURL := fmt.Sprintf("https://%s/search?%s", p.domain, params.Encode())

	body, err := getJSON(ctx, p.hc, p.Name(), reqURL, map[string]string{"User-Agent": p.userAgent})
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, parseErr(p.Name(), err)
	}

	if len(places) == 0 {
		return &Result{Matched: false}, nil
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, parseErr(p.Name(), err)
	}
	lng, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, parseErr(p.Name(), err)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lng,
		Matched:   true,
		Address:   place.DisplayName,
	}, nil
}
