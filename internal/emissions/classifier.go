package emissions

import (
	"sort"
	"time"

	"greenmines/emissions-portal/emissions-portal-backend/pkg/payload"
)

// Payload is a raw emission document as stored by the entry forms.
type Payload map[string]any

// Bundle is the record source's answer for a date range: raw documents
// keyed by category name.
type Bundle map[string][]Payload

// Record is a payload tagged with its category.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// Classify tags every payload in b with its category. Entries under keys
// that are not a known category are skipped and counted per key. Date-only
// timestamps are read as midnight in loc.
func Classify(b Bundle, loc *time.Location) ([]Record, map[string]int) {
	keys := make([]string, 0, len(b))
	total := 0
	for k, entries := range b {
		keys = append(keys, k)
		total += len(entries)
	}
	sort.Strings(keys)

	records := make([]Record, 0, total)
	ignored := make(map[string]int)
	for _, k := range keys {
		c, ok := ParseCategory(k)
		if !ok {
			if n := len(b[k]); n > 0 {
				ignored[k] += n
			}
			continue
		}
		for _, p := range b[k] {
			records = append(records, NewRecord(c, p, loc))
		}
	}
	return records, ignored
}

// NewRecord tags p with c, reading its identifier and creation time.
func NewRecord(c Category, p Payload, loc *time.Location) Record {
	doc := map[string]any(p)
	ts, _ := payload.TimeIn(doc, loc, "createdAt", "timestamp")
	return Record{
		ID:        payload.ID(doc),
		Category:  c,
		Timestamp: ts,
		Payload:   p,
	}
}
