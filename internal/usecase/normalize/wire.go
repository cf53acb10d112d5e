package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/kailas-cloud/ragdesk/internal/domain/query"
)

// wireResponse is the accepted shape of /query-llm and /query bodies.
// Every field is optional; defaults are applied in one place by Normalize.
type wireResponse struct {
	GeneratedAnswer      *string           `json:"generated_answer"`
	Results              []wireChunk       `json:"results"`
	RetrievedCount       *int              `json:"retrieved_count"`
	SimilarityScoreRange *query.ScoreRange `json:"similarity_score_range"`
	ResponseTimeMS       *float64          `json:"response_time_ms"`
	QueryAnalysis        json.RawMessage   `json:"query_analysis"`
	RetrievalGated       bool              `json:"retrieval_gated"`
	GatingReason         flexString        `json:"gating_reason"`
	Error                errorField        `json:"error"`
}

type wireChunk struct {
	ID       flexString   `json:"id"`
	Score    *float64     `json:"score"`
	Content  flexString   `json:"content"`
	Metadata wireMetadata `json:"metadata"`
}

type wireMetadata struct {
	Title        flexString `json:"title"`
	SourceFile   flexString `json:"source_file"`
	DocumentName flexString `json:"document_name"`
	ChunkID      flexString `json:"chunk_id"`
	Section      flexString `json:"section"`
}

// flexString accepts a JSON string, number, bool or null. Objects and arrays
// keep their compact JSON text so nothing reported by the backend is lost.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err //nolint:wrapcheck // surfaced as a decode error by the caller
		}
		*s = flexString(v)
	case data[0] == '{' || data[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err //nolint:wrapcheck // surfaced as a decode error by the caller
		}
		*s = flexString(buf.String())
	default:
		if f, err := strconv.ParseFloat(string(data), 64); err == nil {
			*s = flexString(strconv.FormatFloat(f, 'f', -1, 64))
			return nil
		}
		*s = flexString(data)
	}
	return nil
}

// errorField is the backend-reported error. Falsy values (false, 0, null,
// empty string, empty object or array) mean no error; anything else is kept
// as text.
type errorField string

func (e *errorField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "", "null", "false", `""`:
		*e = ""
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err //nolint:wrapcheck // surfaced as a decode error by the caller
		}
		switch c := v.(type) {
		case map[string]any:
			if len(c) == 0 {
				*e = ""
				return nil
			}
		case []any:
			if len(c) == 0 {
				*e = ""
				return nil
			}
		}
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil && f == 0 {
		*e = ""
		return nil
	}

	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*e = errorField(s)
	return nil
}
