package geocode

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbscully/geocode-sqlite/internal/spatial"
)

func mustBBox(t *testing.T, minLat, minLng, maxLat, maxLng float64) *spatial.BoundingBox {
	t.Helper()
	b, err := spatial.ParseBBox([]float64{minLat, minLng, maxLat, maxLng})
	require.NoError(t, err)
	return b
}

// newRewriteClient creates an HTTP client that rewrites requests to a test
// server URL. All requests matching the target prefix are redirected to the
// test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		suffix := origURL[len(t.targetPrefix):]
		newURL := t.testServer + suffix
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(newURL)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}
