package records

import "testing"

func TestRecordLookup(t *testing.T) {
	r := NewRecord(2, []string{"CODE", "Taglia", "Image", "CODE"}, []Cell{
		PlainText("P001"),
		PlainText("M"),
		Hyperlink("click", "http://cdn.example.com/a.png"),
		PlainText("ignored-duplicate"),
	})

	if got := r.Value("CODE"); got != "P001" {
		t.Fatalf("Value(CODE)=%q", got)
	}
	if got := r.Value("taglia"); got != "M" {
		t.Fatalf("case-insensitive lookup failed: %q", got)
	}
	c, ok := r.Get("IMAGE")
	if !ok || !c.IsHyperlink() || c.URL() != "http://cdn.example.com/a.png" || c.Text != "click" {
		t.Fatalf("hyperlink cell lost: %+v ok=%v", c, ok)
	}
	if r.Has("missing") {
		t.Fatalf("unexpected column")
	}
	if len(r.Columns) != 3 {
		t.Fatalf("duplicate header should be dropped, got %v", r.Columns)
	}
	if name, ok := r.Canonical("image"); !ok || name != "Image" {
		t.Fatalf("Canonical(image)=%q,%v", name, ok)
	}
}

func TestNewRecord_ShortRow(t *testing.T) {
	r := NewRecord(3, []string{"A", "B"}, []Cell{PlainText("x")})
	if !r.Has("B") || r.Value("B") != "" {
		t.Fatalf("short row should yield empty trailing cells")
	}
	if PlainText("x").URL() != "x" {
		t.Fatalf("plain cell URL should be its text")
	}
}
