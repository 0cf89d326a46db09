package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

const (
	mapquestLicensedDomain = "www.mapquestapi.com"
	mapquestOpenDomain     = "open.mapquestapi.com"
)

// MapQuest geocodes via the MapQuest Geocoding API, either the licensed
// endpoint or the open-data one backed by OSM.
type MapQuest struct {
	name   string
	domain string
	key    string
	hc     *http.Client
}

// NewMapQuest creates a provider for the licensed MapQuest endpoint.
func NewMapQuest(cfg Config) (Provider, error) {
	return newMapQuest("mapquest", mapquestLicensedDomain, cfg)
}

// NewOpenMapQuest creates a provider for the open-data MapQuest endpoint.
func NewOpenMapQuest(cfg Config) (Provider, error) {
	return newMapQuest("open-mapquest", mapquestOpenDomain, cfg)
}

func newMapQuest(name, domain string, cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, eris.Errorf("geocode: %s requires an API key (--api-key or GEOCODE_KEYS_MAPQUEST)", name)
	}
	return &MapQuest{name: name, domain: domain, key: cfg.APIKey, hc: cfg.httpClient()}, nil
}

// Name implements Provider.
func (p *MapQuest) Name() string { return p.name }

// mapquestResponse is the JSON response from the MapQuest Geocoding API.
type mapquestResponse struct {
	Info struct {
		StatusCode int `json:"statuscode"`
	} `json:"info"`
	Results []struct {
		Locations []struct {
			LatLng struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"latLng"`
			Street string `json:"street"`
		} `json:"locations"`
	} `json:"results"`
}

// Geocode implements Provider.
func (p *MapQuest) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"location":   {query},
		"key":        {p.key},
		"maxResults": {"1"},
	}
	reqURL := fmt.Sprintf("https://%s/geocoding/v1/address?%s", p.domain, params.Encode())

	body, err := getJSON(ctx, p.hc, p.Name(), reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp mapquestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseErr(p.Name(), err)
	}

	// MapQuest signals key and input problems through info.statuscode with a
	// 200 HTTP response.
	if resp.Info.StatusCode != 0 {
		return nil, &ProviderError{Provider: p.Name(), Kind: KindStatus, Err: eris.Errorf("api statuscode %d", resp.Info.StatusCode)}
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Locations) == 0 {
		return &Result{Matched: false}, nil
	}

	best := resp.Results[0].Locations[0]
	// MapQuest reports unresolvable input as a 0,0 location rather than an
	// empty result set.
	if best.LatLng.Lat == 0 && best.LatLng.Lng == 0 {
		return &Result{Matched: false}, nil
	}
	return &Result{
		Latitude:  best.LatLng.Lat,
		Longitude: best.LatLng.Lng,
		Matched:   true,
		Address:   best.Street,
	}, nil
}
