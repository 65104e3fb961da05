// Package xlsx reads supplier workbooks with excelize.
package xlsx

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog/internal/records"
	"catalog/internal/textutil"
)

var hyperlinkFormula = regexp.MustCompile(`(?i)^=?\s*HYPERLINK\(\s*"([^"]+)"(?:\s*[,;]\s*"([^"]*)")?`)

// Reader reads the first (or the named) sheet of a workbook. The first
// non-empty row is the header.
type Reader struct {
	// Sheet selects a sheet by name; empty means the first sheet.
	Sheet string
}

// ReadRows implements records.Reader.
//
// Cell hyperlinks and HYPERLINK() formulas become records.Hyperlink cells so
// image columns can use the link target while text columns keep the label.
func (rd Reader) ReadRows(ctx context.Context, path string) ([]records.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := rd.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%s: no sheets found", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: read rows: %w", path, err)
	}

	var links cellLinks = sheetLookup{f: f, sheet: sheet}
	if ix, err := buildLinkIndex(path, sheet); err == nil {
		links = ix
	}

	hdrIdx := -1
	for i, r := range rows {
		if !blank(r) {
			hdrIdx = i
			break
		}
	}
	if hdrIdx < 0 {
		return nil, nil
	}

	header := make([]string, len(rows[hdrIdx]))
	for i, h := range rows[hdrIdx] {
		header[i] = textutil.Trim(h)
	}

	out := make([]records.Record, 0, len(rows)-hdrIdx-1)
	for i := hdrIdx + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		raw := rows[i]
		if blank(raw) {
			continue
		}
		excelRow := i + 1

		cells := make([]records.Cell, len(header))
		for c := range header {
			var text string
			if c < len(raw) {
				text = textutil.Trim(raw[c])
			}
			cells[c] = cell(links, c+1, excelRow, text)
		}
		out = append(out, records.NewRecord(excelRow, header, cells))
	}
	return out, nil
}

// cellLinks finds the hyperlink target or HYPERLINK() formula of a cell.
type cellLinks interface {
	target(ref string) (string, bool)
	formula(ref string) (string, bool)
}

// sheetLookup asks excelize cell by cell. It is only used when the worksheet
// part cannot be indexed, since every call scans the sheet.
type sheetLookup struct {
	f     *excelize.File
	sheet string
}

func (l sheetLookup) target(ref string) (string, bool) {
	ok, target, err := l.f.GetCellHyperLink(l.sheet, ref)
	return target, err == nil && ok && target != ""
}

func (l sheetLookup) formula(ref string) (string, bool) {
	formula, err := l.f.GetCellFormula(l.sheet, ref)
	return formula, err == nil && formula != ""
}

func cell(links cellLinks, col, row int, text string) records.Cell {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return records.PlainText(text)
	}
	if target, ok := links.target(ref); ok {
		return records.Hyperlink(text, target)
	}
	if formula, ok := links.formula(ref); ok {
		if target, label, ok := ParseHyperlinkFormula(formula); ok {
			if text == "" {
				text = label
			}
			return records.Hyperlink(text, target)
		}
	}
	if target, label, ok := ParseHyperlinkFormula(text); ok {
		return records.Hyperlink(label, target)
	}
	return records.PlainText(text)
}

// ParseHyperlinkFormula extracts the target and optional label from a
// HYPERLINK("url","label") formula. The label defaults to the target.
func ParseHyperlinkFormula(s string) (target, label string, ok bool) {
	m := hyperlinkFormula.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	label = m[2]
	if label == "" {
		label = m[1]
	}
	return m[1], label, true
}

func blank(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
