package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.db.Exec(`CREATE TABLE places (name TEXT, city TEXT)`)
	require.NoError(t, err)
	for _, row := range [][2]string{
		{"Disneyland", "Anaheim"},
		{"Space Needle", "Seattle"},
		{"Gateway Arch", "St. Louis"},
	} {
		_, err = s.db.Exec(`INSERT INTO places (name, city) VALUES (?, ?)`, row[0], row[1])
		require.NoError(t, err)
	}
	return s
}

func TestSQLiteEnsureColumns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()

	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	existing, err := s.columnSet(ctx, "places")
	require.NoError(t, err)
	assert.True(t, existing["latitude"])
	assert.True(t, existing["longitude"])
	assert.True(t, existing["geocoder"])
	assert.False(t, existing["geometry"])

	// Second run is a no-op.
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))
}

func TestSQLiteEnsureColumns_Geometry(t *testing.T) {
	s := newTestSQLite(t)
	cols := DefaultColumns()
	cols.Geometry = "geometry"

	require.NoError(t, s.EnsureColumns(context.Background(), "places", cols))

	existing, err := s.columnSet(context.Background(), "places")
	require.NoError(t, err)
	assert.True(t, existing["geometry"])
}

func TestSQLiteEnsureColumns_MissingTable(t *testing.T) {
	s := newTestSQLite(t)
	err := s.EnsureColumns(context.Background(), "nope", DefaultColumns())
	assert.Error(t, err)
}

func TestSQLiteSelectPending(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	rows, err := s.SelectPending(ctx, "places", cols, false, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// rowid order, with values keyed by column name.
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, "Disneyland", rows[0].Values["name"])
	assert.Equal(t, "Anaheim", rows[0].Values["city"])
	assert.Nil(t, rows[0].Values["latitude"])
	assert.Equal(t, int64(3), rows[2].ID)
}

func TestSQLiteSelectPending_SkipsGeocodedRows(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	require.NoError(t, s.UpdateCoordinates(ctx, "places", cols, Update{
		ID: int64(1), Latitude: 33.81, Longitude: -117.92, Geocoder: "nominatim",
	}))

	rows, err := s.SelectPending(ctx, "places", cols, false, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].ID)

	n, err := s.CountPending(ctx, "places", cols, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteSelectPending_Force(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	require.NoError(t, s.UpdateCoordinates(ctx, "places", cols, Update{
		ID: int64(1), Latitude: 33.81, Longitude: -117.92, Geocoder: "nominatim",
	}))

	rows, err := s.SelectPending(ctx, "places", cols, true, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	n, err := s.CountPending(ctx, "places", cols, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteSelectPending_Limit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	rows, err := s.SelectPending(ctx, "places", cols, false, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(2), rows[1].ID)
}

func TestSQLiteUpdateCoordinates(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	require.NoError(t, s.UpdateCoordinates(ctx, "places", cols, Update{
		ID: int64(2), Latitude: 47.6205, Longitude: -122.3493, Geocoder: "bing",
	}))

	var lat, lng float64
	var geocoder string
	err := s.db.QueryRow(`SELECT latitude, longitude, geocoder FROM places WHERE rowid = 2`).
		Scan(&lat, &lng, &geocoder)
	require.NoError(t, err)
	assert.InDelta(t, 47.6205, lat, 0.0001)
	assert.InDelta(t, -122.3493, lng, 0.0001)
	assert.Equal(t, "bing", geocoder)
}

func TestSQLiteUpdateCoordinates_WritesGeometry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	cols.Geometry = "geometry"
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	ewkb := []byte{0x01, 0x01, 0x00, 0x00, 0x20}
	require.NoError(t, s.UpdateCoordinates(ctx, "places", cols, Update{
		ID: int64(1), Latitude: 33.81, Longitude: -117.92, Geocoder: "nominatim", Geometry: ewkb,
	}))

	var got []byte
	err := s.db.QueryRow(`SELECT geometry FROM places WHERE rowid = 1`).Scan(&got)
	require.NoError(t, err)
	assert.Equal(t, ewkb, got)
}

func TestSQLiteUpdateCoordinates_MissingRow(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "places", cols))

	err := s.UpdateCoordinates(ctx, "places", cols, Update{ID: int64(99), Latitude: 1, Longitude: 2})
	assert.Error(t, err)
}

func TestSQLite_QuotedIdentifiers(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.Exec(`CREATE TABLE "weird table" ("street address" TEXT)`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO "weird table" ("street address") VALUES ('600 N Harbor Blvd')`)
	require.NoError(t, err)

	cols := DefaultColumns()
	require.NoError(t, s.EnsureColumns(ctx, "weird table", cols))

	rows, err := s.SelectPending(ctx, "weird table", cols, false, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "600 N Harbor Blvd", rows[0].Values["street address"])
}

func TestOpen_DispatchesToSQLite(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "dispatch.db"))
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}
