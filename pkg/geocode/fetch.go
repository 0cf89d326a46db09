package geocode

import (
	"context"
	"io"
	"net/http"
)

// getJSON issues a GET and returns the response body, classifying transport
// and status failures. Every adapter funnels its request through here so the
// error taxonomy stays uniform.
func getJSON(ctx context.Context, hc *http.Client, provider, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, networkErr(provider, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, networkErr(provider, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusErr(provider, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkErr(provider, err)
	}
	return body, nil
}
