// Package csv reads delimited supplier catalogs into records.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"catalog/internal/config"
	"catalog/internal/records"
	"catalog/internal/textutil"
)

// StreamRecords streams CSV rows from src into out as records keyed by the
// header row.
//
// Options:
//   - comma (default ","), lazy_quotes (default true), trim_space (default true)
//   - encoding: utf-8 (default), latin1, windows-1252
//   - header_map: raw header -> renamed header
//
// Malformed records are reported through onErr and skipped; only header and
// setup failures are returned.
func StreamRecords(
	ctx context.Context,
	src io.ReadCloser,
	opt config.Options,
	out chan<- records.Record,
	onErr func(line int, err error),
) error {
	defer src.Close()

	var line int

	r, err := textutil.DecodeReader(src, opt.String("encoding", "utf-8"))
	if err != nil {
		return err
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", true)
	cr.FieldsPerRecord = -1
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}
	header := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = textutil.Trim(h)
		if mapped, ok := hm[h]; ok {
			h = mapped
		}
		header[i] = h
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		if isBlank(rec) {
			continue
		}

		cells := make([]records.Cell, len(header))
		for i := range header {
			if i >= len(rec) {
				break
			}
			v := rec[i]
			if trim {
				v = textutil.Trim(v)
			}
			cells[i] = records.PlainText(v)
		}

		select {
		case out <- records.NewRecord(line, header, cells):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Reader reads whole CSV files. Row-level parse errors go to OnError.
type Reader struct {
	Options config.Options
	OnError func(line int, err error)
}

// ReadRows implements records.Reader.
func (rd Reader) ReadRows(ctx context.Context, path string) ([]records.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	ch := make(chan records.Record, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(ch)
		errCh <- StreamRecords(ctx, f, rd.Options, ch, rd.OnError)
	}()

	var out []records.Record
	for r := range ch {
		out = append(out, r)
	}
	if err := <-errCh; err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
