package xlsx

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any, links map[string]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, ref, &r))
	}
	for ref, target := range links {
		require.NoError(t, f.SetCellHyperLink(sheet, ref, target, "External"))
	}
	p := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestReadRows_HeaderValuesAndHyperlinks(t *testing.T) {
	p := writeWorkbook(t, [][]any{
		{"CODE", "TAGLIA", "FOTO"},
		{"P001", "M", "vedi foto"},
		{nil, nil, nil},
		{"P002", 42, "http://cdn.example.com/img/P002.png"},
	}, map[string]string{"C2": "http://cdn.example.com/img/P001.jpg"})

	rows, err := Reader{}.ReadRows(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "P001", rows[0].Value("CODE"))
	foto, ok := rows[0].Get("FOTO")
	require.True(t, ok)
	require.True(t, foto.IsHyperlink())
	require.Equal(t, "vedi foto", foto.Text)
	require.Equal(t, "http://cdn.example.com/img/P001.jpg", foto.URL())

	require.Equal(t, "42", rows[1].Value("TAGLIA"))
	require.Equal(t, 4, rows[1].Line)
	foto2, _ := rows[1].Get("FOTO")
	require.False(t, foto2.IsHyperlink())
}

func TestParseHyperlinkFormula(t *testing.T) {
	target, label, ok := ParseHyperlinkFormula(`=HYPERLINK("http://x/a.jpg","Foto")`)
	require.True(t, ok)
	require.Equal(t, "http://x/a.jpg", target)
	require.Equal(t, "Foto", label)

	target, label, ok = ParseHyperlinkFormula(`HYPERLINK("http://x/b.jpg")`)
	require.True(t, ok)
	require.Equal(t, "http://x/b.jpg", target)
	require.Equal(t, "http://x/b.jpg", label)

	_, _, ok = ParseHyperlinkFormula("plain text")
	require.False(t, ok)
}

func TestReadRows_MissingFile(t *testing.T) {
	_, err := Reader{}.ReadRows(context.Background(), filepath.Join(t.TempDir(), "none.xlsx"))
	require.Error(t, err)
}

func TestReadRows_FormulaHyperlinkAndNamedSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("listino")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("listino", "A1", &[]any{"CODE", "FOTO", "NOTE"}))
	require.NoError(t, f.SetSheetRow("listino", "A2", &[]any{"P1", nil, "x"}))
	require.NoError(t, f.SetSheetRow("listino", "A3", &[]any{"P2", "foto", "y"}))
	require.NoError(t, f.SetCellFormula("listino", "B2", `HYPERLINK("http://cdn.example.com/img/P1.jpg","Foto P1")`))
	require.NoError(t, f.SetCellHyperLink("listino", "B3", "http://cdn.example.com/img/P2.jpg", "External"))
	// same refs on the first sheet must not leak into "listino"
	require.NoError(t, f.SetCellHyperLink("Sheet1", "C2", "http://wrong.example.com", "External"))
	p := filepath.Join(t.TempDir(), "two_sheets.xlsx")
	require.NoError(t, f.SaveAs(p))

	rows, err := Reader{Sheet: "listino"}.ReadRows(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	foto1, _ := rows[0].Get("FOTO")
	require.True(t, foto1.IsHyperlink())
	require.Equal(t, "Foto P1", foto1.Text)
	require.Equal(t, "http://cdn.example.com/img/P1.jpg", foto1.URL())

	foto2, _ := rows[1].Get("FOTO")
	require.Equal(t, "foto", foto2.Text)
	require.Equal(t, "http://cdn.example.com/img/P2.jpg", foto2.URL())

	note, _ := rows[0].Get("NOTE")
	require.False(t, note.IsHyperlink())
}

func TestBuildLinkIndex_MatchesExcelize(t *testing.T) {
	links := map[string]string{
		"C2": "http://cdn.example.com/a.jpg",
		"D3": "http://cdn.example.com/b.jpg",
		"A4": "http://cdn.example.com/c.jpg",
	}
	p := writeWorkbook(t, [][]any{
		{"CODE", "NOME", "FOTO", "FOTO2"},
		{"P1", "a", "f", nil},
		{"P2", "b", nil, "g"},
		{"P3", "c", nil, nil},
	}, links)

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)

	ix, err := buildLinkIndex(p, sheet)
	require.NoError(t, err)
	slow := sheetLookup{f: f, sheet: sheet}
	for row := 1; row <= 4; row++ {
		for col := 1; col <= 4; col++ {
			ref, err := excelize.CoordinatesToCellName(col, row)
			require.NoError(t, err)
			wantT, wantOK := slow.target(ref)
			gotT, gotOK := ix.target(ref)
			require.Equal(t, wantOK, gotOK, ref)
			require.Equal(t, wantT, gotT, ref)
		}
	}
	require.Len(t, ix.targets, 3)
}

func TestLinkIndex_SharedFormulaAndRangeRef(t *testing.T) {
	const sheetXML = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheetData>
<row r="2"><c r="B2"><f t="shared" ref="B2:B3" si="0">HYPERLINK(&quot;http://x/a.jpg&quot;,&quot;A&quot;)</f><v>A</v></c></row>
<row r="3"><c r="B3"><f t="shared" si="0"/><v>A</v></c><c r="C3"><f>SUM(1,2)</f><v>3</v></c></row>
</sheetData>
<hyperlinks><hyperlink ref="D2:E3" r:id="rId1"/><hyperlink ref="F9" location="Sheet2!A1"/></hyperlinks>
</worksheet>`
	ix := &linkIndex{targets: map[string]string{}, formulas: map[string]string{}}
	require.NoError(t, ix.scan(strings.NewReader(sheetXML), map[string]string{"rId1": "http://x/range"}))

	for _, ref := range []string{"B2", "B3"} {
		f, ok := ix.formula(ref)
		require.True(t, ok, ref)
		target, _, ok := ParseHyperlinkFormula(f)
		require.True(t, ok)
		require.Equal(t, "http://x/a.jpg", target)
	}
	_, ok := ix.formula("C3")
	require.False(t, ok)

	for _, ref := range []string{"D2", "E2", "D3", "E3"} {
		got, ok := ix.target(ref)
		require.True(t, ok, ref)
		require.Equal(t, "http://x/range", got)
	}
	got, ok := ix.target("F9")
	require.True(t, ok)
	require.Equal(t, "Sheet2!A1", got)
}

func TestExpandRef(t *testing.T) {
	require.Equal(t, []string{"C2"}, expandRef("C2"))
	require.Equal(t, []string{"A1", "B1", "A2", "B2"}, expandRef("$B$2:A1"))
	require.Nil(t, expandRef("not a ref"))
}

// writeLinkedCatalog builds a sheet with 20 columns, three of them hyperlinked
// on every row.
func writeLinkedCatalog(tb testing.TB, rows int) string {
	tb.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := make([]any, 20)
	for c := range header {
		header[c] = fmt.Sprintf("COL%d", c+1)
	}
	require.NoError(tb, f.SetSheetRow(sheet, "A1", &header))
	for r := 2; r <= rows+1; r++ {
		vals := make([]any, 20)
		for c := range vals {
			vals[c] = fmt.Sprintf("v%d_%d", r, c)
		}
		ref, _ := excelize.CoordinatesToCellName(1, r)
		require.NoError(tb, f.SetSheetRow(sheet, ref, &vals))
		for _, c := range []int{18, 19, 20} {
			cellRef, _ := excelize.CoordinatesToCellName(c, r)
			require.NoError(tb, f.SetCellHyperLink(sheet, cellRef, fmt.Sprintf("http://cdn.example.com/%d/%d.jpg", r, c), "External"))
		}
	}
	p := filepath.Join(tb.TempDir(), "linked.xlsx")
	require.NoError(tb, f.SaveAs(p))
	return p
}

func TestReadRows_ManyHyperlinks(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a large workbook")
	}
	p := writeLinkedCatalog(t, 2000)

	start := time.Now()
	rows, err := Reader{}.ReadRows(context.Background(), p)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, rows, 2000)

	last, _ := rows[1999].Get("COL20")
	require.Equal(t, "http://cdn.example.com/2001/20.jpg", last.URL())
	plain, _ := rows[1999].Get("COL1")
	require.False(t, plain.IsHyperlink())

	// per-cell lookups took tens of seconds at this size
	require.Less(t, elapsed, 10*time.Second)
}

func BenchmarkReadRows_Hyperlinks(b *testing.B) {
	for _, n := range []int{500, 1000, 2000} {
		p := writeLinkedCatalog(b, n)
		b.Run(fmt.Sprintf("rows=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := (Reader{}).ReadRows(context.Background(), p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
