package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Rows are addressed
// by rowid, which doubles as the stable scan order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureColumns adds missing output columns via ALTER TABLE. Existing
// columns are left alone, whatever their declared type.
func (s *SQLiteStore) EnsureColumns(ctx context.Context, table string, cols Columns) error {
	existing, err := s.columnSet(ctx, table)
	if err != nil {
		return err
	}

	add := []struct {
		name, typ string
	}{
		{cols.Latitude, "REAL"},
		{cols.Longitude, "REAL"},
		{cols.Geocoder, "TEXT"},
		{cols.Geometry, "BLOB"},
	}
	for _, col := range add {
		if col.name == "" || existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(col.name), col.typ)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: add column %s", col.name)
		}
	}
	return nil
}

// columnSet returns the table's current column names.
func (s *SQLiteStore) columnSet(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: table_info %s", table)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan table_info")
		}
		cols[name] = true
	}
	if len(cols) == 0 {
		return nil, eris.Errorf("sqlite: table %s not found or has no columns", table)
	}
	return cols, eris.Wrap(rows.Err(), "sqlite: table_info iterate")
}

func (s *SQLiteStore) CountPending(ctx context.Context, table string, cols Columns, force bool) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
	if !force {
		query += fmt.Sprintf(" WHERE %s IS NULL", quoteIdent(cols.Latitude))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count pending")
	}
	return n, nil
}

func (s *SQLiteStore) SelectPending(ctx context.Context, table string, cols Columns, force bool, limit int) ([]Row, error) {
	query := fmt.Sprintf("SELECT rowid, * FROM %s", quoteIdent(table))
	if !force {
		query += fmt.Sprintf(" WHERE %s IS NULL", quoteIdent(cols.Latitude))
	}
	query += " ORDER BY rowid"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select pending")
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: result columns")
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}

		r := Row{ID: vals[0], Values: make(map[string]any, len(names)-1)}
		for i := 1; i < len(names); i++ {
			r.Values[names[i]] = vals[i]
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: select pending iterate")
}

func (s *SQLiteStore) UpdateCoordinates(ctx context.Context, table string, cols Columns, upd Update) error {
	set := fmt.Sprintf("%s = ?, %s = ?, %s = ?",
		quoteIdent(cols.Latitude), quoteIdent(cols.Longitude), quoteIdent(cols.Geocoder))
	args := []any{upd.Latitude, upd.Longitude, upd.Geocoder}

	if cols.Geometry != "" {
		set += fmt.Sprintf(", %s = ?", quoteIdent(cols.Geometry))
		args = append(args, upd.Geometry)
	}

	args = append(args, upd.ID)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE rowid = ?", quoteIdent(table), set)

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update row %v", upd.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: row %v not found", upd.ID)
	}
	return nil
}
