// Package store abstracts the table the geocoder reads rows from and writes
// coordinates back to. Pending state is derived purely from the latitude
// column being null, which is what makes interrupted runs resumable.
package store

import (
	"context"
	"strings"
)

// Columns names the columns the geocoder writes. Geometry is empty unless
// spatial output is enabled.
type Columns struct {
	Latitude  string
	Longitude string
	Geocoder  string
	Geometry  string
}

// DefaultColumns returns the standard column set without a geometry column.
func DefaultColumns() Columns {
	return Columns{Latitude: "latitude", Longitude: "longitude", Geocoder: "geocoder"}
}

// Row is one candidate row: its primary key (or rowid) and a column-name to
// value mapping for template rendering.
type Row struct {
	ID     any
	Values map[string]any
}

// Update carries the coordinate write for one row. All columns are written
// in a single statement so interruption can never leave a half-geocoded row.
type Update struct {
	ID        any
	Latitude  float64
	Longitude float64
	Geocoder  string
	Geometry  []byte // EWKB point, nil when spatial output is disabled
}

// Store reads candidate rows and persists geocoding results.
type Store interface {
	// EnsureColumns adds the output columns to the table when missing.
	EnsureColumns(ctx context.Context, table string, cols Columns) error

	// CountPending returns how many rows the run will consider.
	CountPending(ctx context.Context, table string, cols Columns, force bool) (int, error)

	// SelectPending returns candidate rows in stable primary-key order.
	// A limit <= 0 means no limit.
	SelectPending(ctx context.Context, table string, cols Columns, force bool, limit int) ([]Row, error)

	// UpdateCoordinates writes one row's result atomically.
	UpdateCoordinates(ctx context.Context, table string, cols Columns, upd Update) error

	Close() error
}

// Open dispatches on the connection string: postgres:// URLs get the pgx
// store, anything else is treated as a SQLite file path.
func Open(ctx context.Context, conn string) (Store, error) {
	if strings.HasPrefix(conn, "postgres://") || strings.HasPrefix(conn, "postgresql://") {
		return NewPostgres(ctx, conn)
	}
	return NewSQLite(conn)
}

// quoteIdent quotes a SQL identifier with double quotes, doubling any
// embedded quotes. Table and column names come from operator input and may
// contain spaces.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
