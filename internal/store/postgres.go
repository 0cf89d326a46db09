package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs. pgxmock
// satisfies it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on top of a pgx pool. Rows are addressed by
// the table's primary key column, discovered once per table.
type PostgresStore struct {
	db pgxQuerier
	pk map[string]string // table -> primary key column
}

// NewPostgres connects to the given database URL.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgres(pool), nil
}

// newPostgres wraps an existing querier; used directly by tests.
func newPostgres(db pgxQuerier) *PostgresStore {
	return &PostgresStore{db: db, pk: make(map[string]string)}
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// primaryKey returns the table's primary key column, falling back to "id"
// for tables without a declared primary key.
func (s *PostgresStore) primaryKey(ctx context.Context, table string) (string, error) {
	if pk, ok := s.pk[table]; ok {
		return pk, nil
	}

	var pk string
	err := s.db.QueryRow(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary
		ORDER BY a.attnum
		LIMIT 1`,
		table,
	).Scan(&pk)
	if err == pgx.ErrNoRows {
		pk = "id"
	} else if err != nil {
		return "", eris.Wrapf(err, "postgres: primary key of %s", table)
	}

	s.pk[table] = pk
	return pk, nil
}

func (s *PostgresStore) EnsureColumns(ctx context.Context, table string, cols Columns) error {
	add := []struct {
		name, typ string
	}{
		{cols.Latitude, "double precision"},
		{cols.Longitude, "double precision"},
		{cols.Geocoder, "text"},
		{cols.Geometry, "bytea"},
	}
	for _, col := range add {
		if col.name == "" {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			quoteIdent(table), quoteIdent(col.name), col.typ)
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: add column %s", col.name)
		}
	}
	return nil
}

func (s *PostgresStore) CountPending(ctx context.Context, table string, cols Columns, force bool) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
	if !force {
		query += fmt.Sprintf(" WHERE %s IS NULL", quoteIdent(cols.Latitude))
	}
	var n int
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count pending")
	}
	return n, nil
}

func (s *PostgresStore) SelectPending(ctx context.Context, table string, cols Columns, force bool, limit int) ([]Row, error) {
	pk, err := s.primaryKey(ctx, table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s", quoteIdent(table))
	if !force {
		query += fmt.Sprintf(" WHERE %s IS NULL", quoteIdent(cols.Latitude))
	}
	query += fmt.Sprintf(" ORDER BY %s", quoteIdent(pk))
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select pending")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: row values")
		}

		r := Row{Values: make(map[string]any, len(fields))}
		for i, fd := range fields {
			r.Values[fd.Name] = vals[i]
			if fd.Name == pk {
				r.ID = vals[i]
			}
		}
		if r.ID == nil {
			return nil, eris.Errorf("postgres: table %s has no %s column to key on", table, pk)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: select pending iterate")
}

func (s *PostgresStore) UpdateCoordinates(ctx context.Context, table string, cols Columns, upd Update) error {
	pk, err := s.primaryKey(ctx, table)
	if err != nil {
		return err
	}

	set := fmt.Sprintf("%s = $1, %s = $2, %s = $3",
		quoteIdent(cols.Latitude), quoteIdent(cols.Longitude), quoteIdent(cols.Geocoder))
	args := []any{upd.Latitude, upd.Longitude, upd.Geocoder}

	if cols.Geometry != "" {
		set += fmt.Sprintf(", %s = $4", quoteIdent(cols.Geometry))
		args = append(args, upd.Geometry)
	}

	args = append(args, upd.ID)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdent(table), set, quoteIdent(pk), len(args))

	tag, err := s.db.Exec(ctx, stmt, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update row %v", upd.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: row %v not found", upd.ID)
	}
	return nil
}
