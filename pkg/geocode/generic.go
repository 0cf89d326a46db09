package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// queryPlaceholder marks where the rendered location string goes in a
// generic URL template.
const queryPlaceholder = "{query}"

// Generic geocodes against an arbitrary templated GET endpoint, extracting
// coordinates from the JSON response via gjson paths. It covers self-hosted
// geocoders (Photon, Pelias, a local Nominatim fork) without a dedicated
// adapter.
type Generic struct {
	urlTemplate string
	latPath     string
	lngPath     string
	headers     map[string]string
	hc          *http.Client
}

// NewGeneric creates a Generic provider from a URL template containing a
// {query} placeholder and lat/lng response paths like "results.0.lat".
func NewGeneric(cfg Config) (Provider, error) {
	if cfg.URLTemplate == "" {
		return nil, eris.New("geocode: generic requires a URL template (--url-template)")
	}
	if !strings.Contains(cfg.URLTemplate, queryPlaceholder) {
		return nil, eris.Errorf("geocode: generic URL template must contain %s", queryPlaceholder)
	}
	if cfg.LatPath == "" || cfg.LngPath == "" {
		return nil, eris.New("geocode: generic requires response paths (--lat-path, --lng-path)")
	}
	return &Generic{
		urlTemplate: cfg.URLTemplate,
		latPath:     cfg.LatPath,
		lngPath:     cfg.LngPath,
		headers:     cfg.Headers,
		hc:          cfg.httpClient(),
	}, nil
}

// Name implements Provider.
func (p *Generic) Name() string { return "generic" }

// Geocode implements Provider.
func (p *Generic) Geocode(ctx context.Context, query string) (*Result, error) {
	reqURL := strings.ReplaceAll(p.urlTemplate, queryPlaceholder, url.QueryEscape(query))

	body, err := getJSON(ctx, p.hc, p.Name(), reqURL, p.headers)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, parseErr(p.Name(), eris.New("response is not valid JSON"))
	}

	latRes := gjson.GetBytes(body, p.latPath)
	lngRes := gjson.GetBytes(body, p.lngPath)

	// Absent paths mean the endpoint returned no candidates.
	if !latRes.Exists() || !lngRes.Exists() {
		return &Result{Matched: false}, nil
	}

	lat, err := resultFloat(latRes)
	if err != nil {
		return nil, parseErr(p.Name(), err)
	}
	lng, err := resultFloat(lngRes)
	if err != nil {
		return nil, parseErr(p.Name(), err)
	}

	return &Result{Latitude: lat, Longitude: lng, Matched: true}, nil
}

// resultFloat converts a gjson value to a float64, accepting numeric strings
// the way Nominatim-style APIs emit them.
func resultFloat(res gjson.Result) (float64, error) {
	switch res.Type {
	case gjson.Number:
		return res.Float(), nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(res.String()), 64)
		if err != nil {
			return 0, eris.Errorf("value %q is not numeric", res.String())
		}
		return f, nil
	default:
		return 0, eris.Errorf("value %s is not numeric", res.Raw)
	}
}
