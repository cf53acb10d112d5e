// Package docstatus models per-document ingestion status.
package docstatus

// Status is the ingestion stage reported by the backend.
type Status string

const (
	// Pending means the document is queued.
	Pending Status = "PENDING"
	// Processing means chunking/embedding is underway.
	Processing Status = "PROCESSING"
	// Indexed means the document is searchable.
	Indexed Status = "INDEXED"
	// Failed means ingestion stopped with an error.
	Failed Status = "FAILED"
)

// Known reports whether s is one of the four documented stages.
func (s Status) Known() bool {
	switch s {
	case Pending, Processing, Indexed, Failed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == Indexed || s == Failed
}

// Details carries optional progress information.
type Details struct {
	Step       string `json:"step,omitempty"`
	ChunkCount *int   `json:"chunk_count,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Entry is the latest reported status of one document.
type Entry struct {
	Status  Status   `json:"status"`
	Details *Details `json:"details,omitempty"`
}

// Map is keyed by document id.
type Map map[string]Entry

// Merge overwrites existing keys and adds new ones. Keys absent from update are kept.
func (m Map) Merge(update Map) {
	for id, e := range update {
		m[id] = e.clone()
	}
}

// Clone returns a deep copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for id, e := range m {
		out[id] = e.clone()
	}
	return out
}

func (e Entry) clone() Entry {
	if e.Details == nil {
		return e
	}
	d := *e.Details
	if d.ChunkCount != nil {
		n := *d.ChunkCount
		d.ChunkCount = &n
	}
	e.Details = &d
	return e
}
