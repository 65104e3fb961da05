package metrics

import (
	"testing"
	"time"
)

type recorder struct {
	counters map[string]float64
	hist     []float64
	flushed  int
}

func (r *recorder) IncCounter(name string, delta float64, labels Labels) {
	r.counters[name+"|"+labels["status"]] += delta
}
func (r *recorder) ObserveHistogram(name string, value float64, labels Labels) {
	r.hist = append(r.hist, value)
}
func (r *recorder) Flush() error { r.flushed++; return nil }

func TestSetBackend_RoutesAndResets(t *testing.T) {
	r := &recorder{counters: map[string]float64{}}
	SetBackend(r)
	t.Cleanup(func() { SetBackend(nil) })

	RecordRow("acme", "ok")
	RecordRow("acme", "ok")
	RecordFile("skipped")
	ObserveStep("read", "ok", 1500*time.Millisecond)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := r.counters[RowsTotal+"|ok"]; got != 2 {
		t.Fatalf("rows ok = %v, want 2", got)
	}
	if got := r.counters[FilesTotal+"|skipped"]; got != 1 {
		t.Fatalf("files skipped = %v, want 1", got)
	}
	if len(r.hist) != 1 || r.hist[0] != 1.5 {
		t.Fatalf("hist = %v", r.hist)
	}
	if r.flushed != 1 {
		t.Fatalf("flushed = %d", r.flushed)
	}

	SetBackend(nil)
	RecordRow("acme", "ok")
	if got := r.counters[RowsTotal+"|ok"]; got != 2 {
		t.Fatalf("nop backend still routed to recorder")
	}
}
