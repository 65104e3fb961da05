// Package postgres stores the canonical table in Postgres using COPY.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog/internal/storage"
)

func init() {
	storage.Register("postgres", NewSink)
}

// Sink replaces the content of one table on every Write inside a single
// transaction: create if missing, TRUNCATE, COPY.
type Sink struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

// NewSink connects to cfg.DSN. cfg.Table may be schema-qualified.
func NewSink(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres sink: missing dsn")
	}
	table := cfg.Table
	if table == "" {
		table = "catalog_products"
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	schema, name := splitQualifiedName(table)
	return &Sink{pool: pool, schema: schema, table: name}, nil
}

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func (s *Sink) identifier() pgx.Identifier {
	if s.schema == "" {
		return pgx.Identifier{s.table}
	}
	return pgx.Identifier{s.schema, s.table}
}

func (s *Sink) Write(ctx context.Context, t storage.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("postgres sink: table has no columns")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	schemaSQL, createSQL := buildCreateSQL(s.schema, s.table, t.Columns)
	if schemaSQL != "" {
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema %s: %w", s.schema, err)
		}
	}
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+s.identifier().Sanitize()); err != nil {
		return fmt.Errorf("truncate %s: %w", s.table, err)
	}

	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(t.Columns))
		for j := range row {
			if j < len(r) {
				row[j] = r[j]
			} else {
				row[j] = ""
			}
		}
		rows[i] = row
	}
	n, err := tx.CopyFrom(ctx, s.identifier(), t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", s.table, n, len(rows))
	}
	return tx.Commit(ctx)
}

func pgIdent(id string) string {
	return pgx.Identifier{id}.Sanitize()
}

func splitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// buildCreateSQL returns the optional CREATE SCHEMA and the CREATE TABLE
// statement with one TEXT column per header column.
func buildCreateSQL(schema, table string, columns []string) (schemaSQL, tableSQL string) {
	ident := pgIdent(table)
	if schema != "" {
		schemaSQL = "CREATE SCHEMA IF NOT EXISTS " + pgIdent(schema) + ";"
		ident = pgx.Identifier{schema, table}.Sanitize()
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = pgIdent(c) + " TEXT"
	}
	tableSQL = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", ident, strings.Join(parts, ",\n  "))
	return schemaSQL, tableSQL
}
