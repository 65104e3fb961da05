package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"catalog/internal/config"
	"catalog/internal/storage"
)

func TestBuildCreateSQL(t *testing.T) {
	got := buildCreateSQL("catalog", []string{"sku", `we"ird`}, []string{"sku"})
	want := "CREATE TABLE IF NOT EXISTS \"catalog\" (\n  \"sku\" TEXT,\n  \"we\"\"ird\" TEXT,\n  UNIQUE (\"sku\")\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSink_WriteReplacesContent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	s, err := storage.New(ctx, storage.Config{
		Kind: "sqlite", DSN: dsn, Table: "products",
		Options: config.Options{"unique_columns": []any{"sku"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	tbl := storage.Table{
		Columns: []string{"sku", "size"},
		Rows:    [][]string{{"P1", "M"}, {"P2"}},
	}
	if err := s.Write(ctx, tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(ctx, tbl); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	db := s.(*Sink).db
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "products"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows=%d, want 2", n)
	}
	var size string
	if err := db.QueryRowContext(ctx, `SELECT size FROM "products" WHERE sku='P2'`).Scan(&size); err != nil {
		t.Fatalf("select: %v", err)
	}
	if size != "" {
		t.Fatalf("padded size=%q, want empty", size)
	}
}
