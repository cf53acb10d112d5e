// Package query models query requests and the normalized result union.
package query

import (
	"encoding/json"
	"fmt"
)

// Kind names the active variant of a Result.
type Kind string

const (
	// KindSuccess is a grounded answer (possibly with zero chunks).
	KindSuccess Kind = "success"
	// KindGated is a withheld answer with a gating reason.
	KindGated Kind = "gated"
	// KindFailure is a terminal error.
	KindFailure Kind = "failure"
)

// Display sentinels.
const (
	Unavailable        = "unavailable"
	ContentUnavailable = "Content unavailable"
)

// Result is one of Success, Gated or Failure. The set is closed.
type Result interface {
	Kind() Kind
	sealed()
}

// Metadata is the provenance attached to a chunk.
type Metadata struct {
	Title        string `json:"title,omitempty"`
	SourceFile   string `json:"source_file,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
	ChunkID      string `json:"chunk_id,omitempty"`
	Section      string `json:"section,omitempty"`
}

// Chunk is a retrieved fragment with display-ready fields filled by the normalizer.
type Chunk struct {
	ID       string   `json:"id"`
	Score    *float64 `json:"score,omitempty"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`

	DocumentName string `json:"document_name"`
	ScoreLabel   string `json:"score_label"`
}

// ScoreRange is the min/max similarity among retrieved chunks.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// UnmarshalJSON accepts both {"min":..,"max":..} and [min, max].
func (r *ScoreRange) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("similarity_score_range: want 2 elements, got %d", len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("similarity_score_range: %w", err)
	}
	r.Min, r.Max = obj.Min, obj.Max
	return nil
}

// Success is a grounded answer.
type Success struct {
	GeneratedAnswer      string          `json:"generated_answer"`
	Results              []Chunk         `json:"results"`
	RetrievedCount       int             `json:"retrieved_count"`
	SimilarityScoreRange *ScoreRange     `json:"similarity_score_range,omitempty"`
	ResponseTimeMS       *float64        `json:"response_time_ms,omitempty"`
	QueryAnalysis        json.RawMessage `json:"query_analysis,omitempty"`
	// Fallback is set when the answer came from the retrieval-only endpoint.
	Fallback bool `json:"fallback"`
	// Raw is the backend body as received, for the debug view.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// InsufficientContext reports the "no chunks" case, which renders differently from an answer.
func (s Success) InsufficientContext() bool { return len(s.Results) == 0 }

// Kind implements Result.
func (Success) Kind() Kind { return KindSuccess }
func (Success) sealed()    {}

// MarshalJSON adds the kind discriminator.
func (s Success) MarshalJSON() ([]byte, error) {
	type alias Success
	results := s.Results
	if results == nil {
		results = []Chunk{}
	}
	a := alias(s)
	a.Results = results
	return json.Marshal(struct {
		Kind                Kind `json:"kind"`
		InsufficientContext bool `json:"insufficient_context"`
		alias
	}{KindSuccess, s.InsufficientContext(), a})
}

// Gated is an answer withheld by the backend quality gate.
type Gated struct {
	GatingReason    string          `json:"gating_reason"`
	GeneratedAnswer string          `json:"generated_answer"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Kind implements Result.
func (Gated) Kind() Kind { return KindGated }
func (Gated) sealed()    {}

// MarshalJSON adds the kind discriminator and the gating flag.
func (g Gated) MarshalJSON() ([]byte, error) {
	type alias Gated
	return json.Marshal(struct {
		Kind           Kind `json:"kind"`
		RetrievalGated bool `json:"retrieval_gated"`
		alias
	}{KindGated, true, alias(g)})
}

// Failure is a terminal error. It never carries chunks.
type Failure struct {
	Error string `json:"error"`
}

// Kind implements Result.
func (Failure) Kind() Kind { return KindFailure }
func (Failure) sealed()    {}

// MarshalJSON adds the kind discriminator and an empty results list.
func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    Kind    `json:"kind"`
		Error   string  `json:"error"`
		Results []Chunk `json:"results"`
	}{KindFailure, f.Error, []Chunk{}})
}

// Chunks returns the chunks of r, or an empty slice for variants without chunks.
func Chunks(r Result) []Chunk {
	if s, ok := r.(Success); ok && s.Results != nil {
		return s.Results
	}
	return []Chunk{}
}
