package assembler

import (
	"sort"
	"strings"
	"time"
)

// Summary aggregates one run.
type Summary struct {
	RunID        string
	Suppliers    int // suppliers with at least one processed file
	Files        int // files processed
	FilesSkipped int
	RowsRead     int
	Rows         int            // rows written after deduplication
	Skipped      map[string]int // skipped rows by reason
	Duplicates   int
	Unmapped     []string
	Fallbacks    int            // sizes that hit the clothing default
	SizeSets     map[string]int // output rows per size_set
	NoData       bool
	Elapsed      time.Duration
}

func newSummary(runID string) Summary {
	return Summary{RunID: runID, Skipped: map[string]int{}, SizeSets: map[string]int{}}
}

// SkippedRows is the total of Skipped.
func (s Summary) SkippedRows() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

func (s *Summary) merge(o Summary) {
	s.Suppliers += o.Suppliers
	s.Files += o.Files
	s.FilesSkipped += o.FilesSkipped
	s.RowsRead += o.RowsRead
	s.Fallbacks += o.Fallbacks
	s.Unmapped = append(s.Unmapped, o.Unmapped...)
	for k, v := range o.Skipped {
		s.Skipped[k] += v
	}
}

// Log writes the summary as stage=summary lines.
func (s Summary) Log(l Logger) {
	prefix := ""
	if s.RunID != "" {
		prefix = "run=" + s.RunID + " "
	}
	l.Printf("%sstage=summary suppliers=%d files=%d files_skipped=%d rows_read=%d rows=%d skipped=%d duplicates=%d fallbacks=%d took=%s",
		prefix, s.Suppliers, s.Files, s.FilesSkipped, s.RowsRead, s.Rows, s.SkippedRows(), s.Duplicates, s.Fallbacks, s.Elapsed.Round(time.Millisecond))
	for _, k := range sortedKeys(s.Skipped) {
		l.Printf("%sstage=summary skipped_reason=%s count=%d", prefix, k, s.Skipped[k])
	}
	if len(s.Unmapped) > 0 {
		l.Printf("%sstage=summary unmapped_suppliers=%s", prefix, strings.Join(s.Unmapped, ","))
	}
	for _, k := range sortedKeys(s.SizeSets) {
		name := k
		if name == "" {
			name = "(empty)"
		}
		l.Printf("%sstage=summary size_set=%s count=%d", prefix, name, s.SizeSets[k])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
