package mssql

import (
	"reflect"
	"testing"
)

func TestMSSQLTableIdent(t *testing.T) {
	if got := mssqlTableIdent("dbo.cat]alog"); got != "[dbo].[cat]]alog]" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildCreateSQL(t *testing.T) {
	got := buildCreateSQL("dbo.catalog", []string{"sku", "size"})
	want := "IF OBJECT_ID(N'dbo.catalog', N'U') IS NULL BEGIN CREATE TABLE [dbo].[catalog] ([sku] NVARCHAR(MAX) NULL, [size] NVARCHAR(MAX) NULL); END;"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildBulkInsertSQL(t *testing.T) {
	q, args := buildBulkInsertSQL("catalog", []string{"sku", "size"}, [][]string{{"P1", "M"}, {"P2"}})
	wantQ := "INSERT INTO [catalog] ([sku], [size]) VALUES (@p1, @p2), (@p3, @p4)"
	if q != wantQ {
		t.Fatalf("q=%q, want %q", q, wantQ)
	}
	if !reflect.DeepEqual(args, []any{"P1", "M", "P2", ""}) {
		t.Fatalf("args=%v", args)
	}
}
