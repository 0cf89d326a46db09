package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sbscully/geocode-sqlite/internal/location"
	"github.com/sbscully/geocode-sqlite/internal/spatial"
	"github.com/sbscully/geocode-sqlite/internal/store"
	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

// memStore is an in-memory Store for exercising the run loop without a
// database.
type memStore struct {
	rows      []store.Row
	updates   []store.Update
	updateErr map[any]error
	ensured   bool
}

func (m *memStore) EnsureColumns(_ context.Context, _ string, _ store.Columns) error {
	m.ensured = true
	return nil
}

func (m *memStore) CountPending(_ context.Context, _ string, _ store.Columns, _ bool) (int, error) {
	return len(m.rows), nil
}

func (m *memStore) SelectPending(_ context.Context, _ string, _ store.Columns, _ bool, limit int) ([]store.Row, error) {
	if limit > 0 && limit < len(m.rows) {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func (m *memStore) UpdateCoordinates(_ context.Context, _ string, _ store.Columns, upd store.Update) error {
	if err := m.updateErr[upd.ID]; err != nil {
		return err
	}
	m.updates = append(m.updates, upd)
	return nil
}

func (m *memStore) Close() error { return nil }

// stubProvider delegates to a function and counts calls.
type stubProvider struct {
	fn    func(query string) (*geocode.Result, error)
	calls int
	times []time.Time
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	p.calls++
	p.times = append(p.times, time.Now())
	return p.fn(query)
}

func matchAt(lat, lng float64) func(string) (*geocode.Result, error) {
	return func(string) (*geocode.Result, error) {
		return &geocode.Result{Latitude: lat, Longitude: lng, Matched: true}, nil
	}
}

func addressRows(n int) []store.Row {
	rows := make([]store.Row, n)
	for i := range rows {
		rows[i] = store.Row{
			ID:     int64(i + 1),
			Values: map[string]any{"location": "somewhere"},
		}
	}
	return rows
}

func mustTemplate(t *testing.T, raw string) *location.Template {
	t.Helper()
	tmpl, err := location.Parse(raw)
	require.NoError(t, err)
	return tmpl
}

func TestRun_GeocodesAllPending(t *testing.T) {
	st := &memStore{rows: addressRows(3)}
	p := &stubProvider{fn: matchAt(33.81, -117.92)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, st.ensured)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, summary.Geocoded)
	assert.Zero(t, summary.NotFound)
	assert.Zero(t, summary.Failed)
	require.Len(t, st.updates, 3)
	assert.Equal(t, int64(1), st.updates[0].ID)
	assert.Equal(t, "stub", st.updates[0].Geocoder)
	assert.InDelta(t, 33.81, st.updates[0].Latitude, 0.0001)
	assert.NoError(t, summary.Err())
}

func TestRun_FailuresDoNotAbort(t *testing.T) {
	st := &memStore{rows: addressRows(5)}
	p := &stubProvider{}
	p.fn = func(string) (*geocode.Result, error) {
		if p.calls == 3 {
			return nil, &geocode.ProviderError{Provider: "stub", Kind: geocode.KindStatus, Status: 502}
		}
		return &geocode.Result{Latitude: 1, Longitude: 2, Matched: true}, nil
	}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 4, summary.Geocoded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, st.updates, 4)
	assert.Error(t, summary.Err())
}

func TestRun_NoMatchLeavesRowPending(t *testing.T) {
	st := &memStore{rows: addressRows(2)}
	p := &stubProvider{fn: func(string) (*geocode.Result, error) {
		return &geocode.Result{Matched: false}, nil
	}}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NotFound)
	assert.Empty(t, st.updates)
	assert.NoError(t, summary.Err())
}

func TestRun_BBoxRejectsOutOfBoundsResult(t *testing.T) {
	bbox, err := spatial.ParseBBox([]float64{33.03, -119.79, 34.70, -115.83})
	require.NoError(t, err)

	st := &memStore{rows: addressRows(1)}
	// New York coordinates, outside the southern California box.
	p := &stubProvider{fn: matchAt(40.73, -74.00)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
		BBox:    bbox,
	})

	summary, runErr := eng.Run(context.Background())
	require.NoError(t, runErr)
	assert.Equal(t, 1, summary.NotFound)
	assert.Zero(t, summary.Geocoded)
	assert.Empty(t, st.updates, "rejected result must not be written")
}

func TestRun_BlankQuerySkipsProvider(t *testing.T) {
	st := &memStore{rows: []store.Row{
		{ID: int64(1), Values: map[string]any{"location": nil}},
		{ID: int64(2), Values: map[string]any{"location": "  "}},
		{ID: int64(3), Values: map[string]any{"location": "somewhere"}},
	}}
	p := &stubProvider{fn: matchAt(1, 2)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls, "blank queries never reach the provider")
	assert.Equal(t, 2, summary.NotFound)
	assert.Equal(t, 1, summary.Geocoded)
}

func TestRun_DelayThrottlesRequests(t *testing.T) {
	st := &memStore{rows: addressRows(3)}
	p := &stubProvider{fn: matchAt(1, 2)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
		Delay:   0.05,
	})

	start := time.Now()
	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Geocoded)

	// First call is immediate, the next two wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestRun_NoDelayRunsFlatOut(t *testing.T) {
	st := &memStore{rows: addressRows(10)}
	p := &stubProvider{fn: matchAt(1, 2)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	start := time.Now()
	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_Limit(t *testing.T) {
	st := &memStore{rows: addressRows(10)}
	p := &stubProvider{fn: matchAt(1, 2)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
		Limit:   4,
	})

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 4, p.calls)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	st := &memStore{rows: addressRows(100)}
	p := &stubProvider{}
	p.fn = func(string) (*geocode.Result, error) {
		if p.calls == 3 {
			cancel()
		}
		return &geocode.Result{Latitude: 1, Longitude: 2, Matched: true}, nil
	}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	summary, err := eng.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, summary.Processed, 100)
	assert.Equal(t, summary.Processed, summary.Geocoded, "rows finished before cancellation stay written")
}

func TestRun_PersistFailureCountsAsFailed(t *testing.T) {
	st := &memStore{
		rows:      addressRows(3),
		updateErr: map[any]error{int64(2): errors.New("disk full")},
	}
	p := &stubProvider{fn: matchAt(1, 2)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Geocoded)
	assert.Equal(t, 1, summary.Failed)
}

func TestRun_WritesGeometryWhenEnabled(t *testing.T) {
	cols := store.DefaultColumns()
	cols.Geometry = "geometry"

	st := &memStore{rows: addressRows(1)}
	p := &stubProvider{fn: matchAt(33.8121, -117.9190)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: cols,
	})

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, st.updates, 1)
	require.NotEmpty(t, st.updates[0].Geometry)

	g, err := ewkb.Unmarshal(st.updates[0].Geometry)
	require.NoError(t, err)
	assert.Equal(t, spatial.WGS84, g.SRID())
}

func TestRun_NoGeometryByDefault(t *testing.T) {
	st := &memStore{rows: addressRows(1)}
	p := &stubProvider{fn: matchAt(1, 2)}
	eng := New(st, p, mustTemplate(t, "{location}"), Options{
		Table:   "places",
		Columns: store.DefaultColumns(),
	})

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, st.updates, 1)
	assert.Nil(t, st.updates[0].Geometry)
}

func TestSummaryErr(t *testing.T) {
	assert.NoError(t, (&Summary{Processed: 5, Geocoded: 5}).Err())
	assert.NoError(t, (&Summary{Processed: 5, Geocoded: 3, NotFound: 2}).Err())

	err := (&Summary{Processed: 5, Geocoded: 4, Failed: 1}).Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 5 rows failed")
}
