// Package sqlite stores the canonical table in a SQLite database
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"catalog/internal/storage"
)

func init() {
	storage.Register("sqlite", NewSink)
}

// Sink replaces the content of one table on every Write. Every column is
// TEXT; the table is created when missing.
type Sink struct {
	db     *sql.DB
	table  string
	unique []string
}

// NewSink opens cfg.DSN (a file path or "file:..." URI; falls back to
// cfg.Path). Options: unique_columns adds a UNIQUE constraint on creation.
func NewSink(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Path
	}
	if dsn == "" {
		return nil, fmt.Errorf("sqlite sink: missing dsn")
	}
	table := cfg.Table
	if table == "" {
		table = "catalog_products"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{db: db, table: table, unique: cfg.Options.Strings("unique_columns")}, nil
}

func (s *Sink) Close() error { return s.db.Close() }

func (s *Sink) Write(ctx context.Context, t storage.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("sqlite sink: table has no columns")
	}
	if _, err := s.db.ExecContext(ctx, buildCreateSQL(s.table, t.Columns, s.unique)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(s.table)); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}
	stmt, err := tx.PrepareContext(ctx, buildInsertSQL(s.table, t.Columns))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range t.Rows {
		for j := range args {
			if j < len(row) {
				args[j] = row[j]
			} else {
				args[j] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func buildCreateSQL(table string, columns, unique []string) string {
	parts := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		parts = append(parts, sqlIdent(c)+" TEXT")
	}
	if len(unique) > 0 {
		cols := make([]string, len(unique))
		for i, c := range unique {
			cols[i] = sqlIdent(c)
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(table), strings.Join(parts, ",\n  "))
}

func buildInsertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = sqlIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", sqlIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}
