package postgres

import (
	"context"
	"strings"
	"testing"

	"catalog/internal/storage"
)

func TestSplitQualifiedName(t *testing.T) {
	tests := []struct {
		in, schema, table string
	}{
		{"public.catalog", "public", "catalog"},
		{"catalog", "", "catalog"},
		{" a . b ", "a", "b"},
		{"a.b.c", "", "a.b.c"},
	}
	for _, tc := range tests {
		s, tb := splitQualifiedName(tc.in)
		if s != tc.schema || tb != tc.table {
			t.Fatalf("splitQualifiedName(%q)=(%q,%q), want (%q,%q)", tc.in, s, tb, tc.schema, tc.table)
		}
	}
}

func TestBuildCreateSQL(t *testing.T) {
	schemaSQL, tableSQL := buildCreateSQL("shop", "catalog", []string{"sku", "size_set"})
	if schemaSQL != `CREATE SCHEMA IF NOT EXISTS "shop";` {
		t.Fatalf("schemaSQL=%q", schemaSQL)
	}
	want := "CREATE TABLE IF NOT EXISTS \"shop\".\"catalog\" (\n  \"sku\" TEXT,\n  \"size_set\" TEXT\n);"
	if tableSQL != want {
		t.Fatalf("tableSQL=\n%s\nwant\n%s", tableSQL, want)
	}

	schemaSQL, tableSQL = buildCreateSQL("", "catalog", []string{"sku"})
	if schemaSQL != "" || !strings.HasPrefix(tableSQL, `CREATE TABLE IF NOT EXISTS "catalog"`) {
		t.Fatalf("unqualified: %q %q", schemaSQL, tableSQL)
	}
}

func TestNewSink_RequiresDSN(t *testing.T) {
	if _, err := NewSink(context.Background(), storage.Config{Kind: "postgres"}); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}
