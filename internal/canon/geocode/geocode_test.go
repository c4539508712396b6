package geocode

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/canonengine/canonengine/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

type fakeHTTP struct {
	calls  int
	body   string
	status int
	err    error
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func newTestClient(t *testing.T, fake *fakeHTTP) *Client {
	t.Helper()
	c := &Client{
		log:       testLogger(t),
		http:      fake,
		baseURL:   "https://example.invalid",
		cachePath: t.TempDir() + "/geocoding_cache.json",
		cache:     make(map[string]Result),
		minPeriod: 0, // tests must not pay the 1 req/sec policy
	}
	return c
}

func TestGeocode_EmptyQuery_ReturnsFalse(t *testing.T) {
	c := newTestClient(t, &fakeHTTP{})
	_, ok := c.Geocode(context.Background(), "   ")
	require.False(t, ok)
}

func TestGeocode_ParsesFirstHit(t *testing.T) {
	fake := &fakeHTTP{body: `[{"display_name":"Seattle, WA","lat":"47.6062","lon":"-122.3321"}]`}
	c := newTestClient(t, fake)

	res, ok := c.Geocode(context.Background(), "Seattle")
	require.True(t, ok)
	require.Equal(t, "Seattle, WA", res.DisplayName)
	require.InDelta(t, 47.6062, res.Point.Lat, 1e-6)
	require.InDelta(t, -122.3321, res.Point.Lon, 1e-6)
	require.Equal(t, 1, fake.calls)
}

func TestGeocode_CachesSecondLookup(t *testing.T) {
	fake := &fakeHTTP{body: `[{"display_name":"Seattle, WA","lat":"47.6062","lon":"-122.3321"}]`}
	c := newTestClient(t, fake)

	_, ok := c.Geocode(context.Background(), "Seattle")
	require.True(t, ok)
	_, ok = c.Geocode(context.Background(), "  SEATTLE  ")
	require.True(t, ok)
	require.Equal(t, 1, fake.calls, "second lookup for the same normalized query must hit the cache, not the network")
}

func TestGeocode_EmptyHitsList_ReturnsFalse(t *testing.T) {
	fake := &fakeHTTP{body: `[]`}
	c := newTestClient(t, fake)

	_, ok := c.Geocode(context.Background(), "Nowhereville")
	require.False(t, ok)
}

func TestGeocode_ErrorStatus_ReturnsFalse(t *testing.T) {
	fake := &fakeHTTP{status: 500, body: `{}`}
	c := newTestClient(t, fake)

	_, ok := c.Geocode(context.Background(), "Somewhere")
	require.False(t, ok)
}

func TestGeocode_TransportError_ReturnsFalse(t *testing.T) {
	c := newTestClient(t, &fakeHTTP{err: errTransport{}})

	_, ok := c.Geocode(context.Background(), "Somewhere")
	require.False(t, ok)
}

type errTransport struct{}

func (errTransport) Error() string { return "simulated transport failure" }

func TestHaversineKm_SamePointIsZero(t *testing.T) {
	p := Point{Lat: 47.6062, Lon: -122.3321}
	require.InDelta(t, 0, HaversineKm(p, p), 1e-9)
}

func TestHaversineKm_SeattleToPortlandApproxDistance(t *testing.T) {
	seattle := Point{Lat: 47.6062, Lon: -122.3321}
	portland := Point{Lat: 45.5152, Lon: -122.6784}

	// Known great-circle distance is ~233km; allow generous tolerance
	// since the test fixture coordinates are rounded.
	require.InDelta(t, 233, HaversineKm(seattle, portland), 10)
}
