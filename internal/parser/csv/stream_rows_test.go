package csv

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"catalog/internal/config"
	"catalog/internal/records"
)

func TestStreamRecords_HeaderAndTrim(t *testing.T) {
	src := io.NopCloser(strings.NewReader("\uFEFFCODE ; TAGLIA;Note\n P001 ;M;\n\n;;\nP002;L;x;extra\n"))
	out := make(chan records.Record, 8)

	err := StreamRecords(context.Background(), src, config.Options{"comma": ";"}, out, nil)
	close(out)
	if err != nil {
		t.Fatalf("StreamRecords: %v", err)
	}

	var got []records.Record
	for r := range out {
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records (blank rows skipped), got %d", len(got))
	}
	if got[0].Value("CODE") != "P001" || got[0].Value("TAGLIA") != "M" {
		t.Fatalf("unexpected first record: %v=%q", got[0].Columns, got[0].Value("CODE"))
	}
	if got[0].Line != 2 || got[1].Line != 4 {
		t.Fatalf("lines = %d,%d", got[0].Line, got[1].Line)
	}
	if got[1].Value("Note") != "x" {
		t.Fatalf("extra fields must not shift columns")
	}
}

func TestReader_Latin1(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "listino.csv")
	// "Qualità" encoded as ISO-8859-1.
	data := append([]byte("sku,desc\nA1,Qualit"), 0xE0, '\n')
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := Reader{Options: config.Options{"encoding": "latin1"}}.ReadRows(context.Background(), p)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Value("desc") != "Qualità" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestReader_MissingFile(t *testing.T) {
	_, err := Reader{}.ReadRows(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatalf("expected error")
	}
}
