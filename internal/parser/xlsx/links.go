package xlsx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// linkIndex holds the hyperlink targets and HYPERLINK() formulas of one sheet,
// keyed by cell reference ("C2"). It is built in a single pass over the
// worksheet part because excelize only offers per-cell lookups, each of which
// scans the whole sheet.
type linkIndex struct {
	targets  map[string]string
	formulas map[string]string
}

func (ix *linkIndex) target(ref string) (string, bool) {
	t, ok := ix.targets[ref]
	return t, ok && t != ""
}

func (ix *linkIndex) formula(ref string) (string, bool) {
	f, ok := ix.formulas[ref]
	return f, ok
}

type xmlRels struct {
	Rels []struct {
		ID         string `xml:"Id,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

type xmlWorkbook struct {
	Sheets []struct {
		Name  string     `xml:"name,attr"`
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"sheets>sheet"`
}

// relID returns the relationship id attribute (r:id) whatever its prefix.
func relID(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Local == "id" && a.Name.Space != "" {
			return a.Value
		}
	}
	return ""
}

// buildLinkIndex reads the worksheet named sheet from the workbook at
// filename and indexes its hyperlinks and HYPERLINK() formulas.
func buildLinkIndex(filename, sheet string) (*linkIndex, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[strings.TrimPrefix(f.Name, "/")] = f
	}

	sheetPath, err := sheetPart(parts, sheet)
	if err != nil {
		return nil, err
	}
	rels, err := readRels(parts, relsPath(sheetPath))
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = r.Target
	}

	src, ok := parts[sheetPath]
	if !ok {
		return nil, fmt.Errorf("worksheet part %s not found", sheetPath)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ix := &linkIndex{targets: map[string]string{}, formulas: map[string]string{}}
	if err := ix.scan(rc, targets); err != nil {
		return nil, fmt.Errorf("scan %s: %w", sheetPath, err)
	}
	return ix, nil
}

func (ix *linkIndex) scan(r io.Reader, relTargets map[string]string) error {
	type xmlFormula struct {
		Text string `xml:",chardata"`
		T    string `xml:"t,attr"`
		SI   string `xml:"si,attr"`
	}

	var (
		dec       = xml.NewDecoder(r)
		cellRef   string
		shared    = map[string]string{} // si -> master formula
		followers = map[string]string{} // cell -> si
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "c":
			cellRef = attr(se.Attr, "r")
		case "f":
			var f xmlFormula
			if err := dec.DecodeElement(&f, &se); err != nil {
				return err
			}
			if cellRef == "" {
				continue
			}
			text := strings.TrimSpace(f.Text)
			if f.T == "shared" && text == "" {
				followers[cellRef] = f.SI
				continue
			}
			if f.T == "shared" {
				shared[f.SI] = text
			}
			if _, _, ok := ParseHyperlinkFormula(text); ok {
				ix.formulas[cellRef] = text
			}
		case "hyperlink":
			target := relTargets[relID(se.Attr)]
			if target == "" {
				target = attr(se.Attr, "location")
			}
			for _, ref := range expandRef(attr(se.Attr, "ref")) {
				if _, dup := ix.targets[ref]; !dup {
					ix.targets[ref] = target
				}
			}
		}
	}
	for ref, si := range followers {
		if text, ok := shared[si]; ok {
			if _, _, ok := ParseHyperlinkFormula(text); ok {
				ix.formulas[ref] = text
			}
		}
	}
	return nil
}

func attr(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// expandRef turns "C2" into [C2] and "C2:D3" into [C2 D2 C3 D3]. Malformed
// references expand to nothing.
func expandRef(ref string) []string {
	ref = strings.ToUpper(strings.ReplaceAll(ref, "$", ""))
	from, to, isRange := strings.Cut(ref, ":")
	if !isRange {
		if _, _, err := excelize.CellNameToCoordinates(from); err != nil {
			return nil
		}
		return []string{from}
	}
	c1, r1, err := excelize.CellNameToCoordinates(from)
	if err != nil {
		return nil
	}
	c2, r2, err := excelize.CellNameToCoordinates(to)
	if err != nil {
		return nil
	}
	c1, c2 = min(c1, c2), max(c1, c2)
	r1, r2 = min(r1, r2), max(r1, r2)
	out := make([]string, 0, (c2-c1+1)*(r2-r1+1))
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			if name, err := excelize.CoordinatesToCellName(c, r); err == nil {
				out = append(out, name)
			}
		}
	}
	return out
}

// sheetPart resolves a sheet name to its worksheet part via the workbook
// relationships.
func sheetPart(parts map[string]*zip.File, sheet string) (string, error) {
	const workbook = "xl/workbook.xml"
	f, ok := parts[workbook]
	if !ok {
		return "", fmt.Errorf("%s not found", workbook)
	}
	var wb xmlWorkbook
	if err := decodePart(f, &wb); err != nil {
		return "", fmt.Errorf("%s: %w", workbook, err)
	}
	id := ""
	for _, s := range wb.Sheets {
		if s.Name == sheet {
			id = relID(s.Attrs)
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("sheet %q not found in %s", sheet, workbook)
	}
	rels, err := readRels(parts, relsPath(workbook))
	if err != nil {
		return "", err
	}
	for _, r := range rels.Rels {
		if r.ID == id {
			return resolveTarget(path.Dir(workbook), r.Target), nil
		}
	}
	return "", fmt.Errorf("relationship %s for sheet %q not found", id, sheet)
}

func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(base, target)
}

// relsPath maps "xl/worksheets/sheet1.xml" to
// "xl/worksheets/_rels/sheet1.xml.rels".
func relsPath(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// readRels decodes a relationships part. A missing part means no
// relationships.
func readRels(parts map[string]*zip.File, name string) (xmlRels, error) {
	var rels xmlRels
	f, ok := parts[name]
	if !ok {
		return rels, nil
	}
	if err := decodePart(f, &rels); err != nil {
		return rels, fmt.Errorf("%s: %w", name, err)
	}
	return rels, nil
}

func decodePart(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}
