// Package normalize maps raw backend query responses to the query.Result union.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	"github.com/kailas-cloud/ragdesk/internal/domain/query"
)

// Defaults applied when the backend omits a field.
const (
	DefaultGatingReason = "Unknown reason"
	WithheldAnswer      = "Answer withheld due to insufficient retrieval quality."
)

// Raw is an unprocessed backend response: either a 2xx body or the transport/HTTP error.
type Raw struct {
	Body []byte
	Err  error
}

// Normalize maps a raw response to exactly one Result variant.
//
// Priority: transport, HTTP or decode failure; backend-reported error; gating flag;
// then Success, which may have zero chunks (insufficient context).
func Normalize(raw Raw) query.Result {
	if raw.Err != nil {
		return query.Failure{Error: raw.Err.Error()}
	}
	r, err := Parse(raw.Body)
	if err != nil {
		return query.Failure{Error: err.Error()}
	}
	return r
}

// Parse maps a 2xx body to a Result. A body that is not a JSON object
// returns an error wrapping domain.ErrDecode.
func Parse(body []byte) (query.Result, error) {
	var w wireResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	return fromWire(w, json.RawMessage(body)), nil
}

func fromWire(w wireResponse, body json.RawMessage) query.Result {
	if w.Error != "" {
		return query.Failure{Error: string(w.Error)}
	}

	if w.RetrievalGated {
		g := query.Gated{
			GatingReason:    string(w.GatingReason),
			GeneratedAnswer: WithheldAnswer,
			Raw:             body,
		}
		if g.GatingReason == "" {
			g.GatingReason = DefaultGatingReason
		}
		if w.GeneratedAnswer != nil && *w.GeneratedAnswer != "" {
			g.GeneratedAnswer = *w.GeneratedAnswer
		}
		return g
	}

	chunks := make([]query.Chunk, len(w.Results))
	for i, c := range w.Results {
		chunks[i] = chunk(i, c)
	}

	s := query.Success{
		Results:              chunks,
		RetrievedCount:       len(chunks),
		SimilarityScoreRange: w.SimilarityScoreRange,
		ResponseTimeMS:       w.ResponseTimeMS,
		QueryAnalysis:        w.QueryAnalysis,
		Raw:                  body,
	}
	if w.GeneratedAnswer != nil {
		s.GeneratedAnswer = *w.GeneratedAnswer
	}
	if w.RetrievedCount != nil {
		s.RetrievedCount = *w.RetrievedCount
	}
	return s
}

func chunk(i int, c wireChunk) query.Chunk {
	md := query.Metadata{
		Title:        string(c.Metadata.Title),
		SourceFile:   string(c.Metadata.SourceFile),
		DocumentName: string(c.Metadata.DocumentName),
		ChunkID:      string(c.Metadata.ChunkID),
		Section:      string(c.Metadata.Section),
	}
	out := query.Chunk{
		ID:           string(c.ID),
		Score:        c.Score,
		Content:      string(c.Content),
		Metadata:     md,
		DocumentName: DocumentName(md),
		ScoreLabel:   ScoreLabel(c.Score),
	}
	if out.ID == "" {
		out.ID = "chunk-" + strconv.Itoa(i)
	}
	if out.Content == "" {
		out.Content = query.ContentUnavailable
	}
	return out
}

// DocumentName resolves a display name: document_name, source_file, title, then "unavailable".
func DocumentName(md query.Metadata) string {
	for _, v := range []string{md.DocumentName, md.SourceFile, md.Title} {
		if v != "" {
			return v
		}
	}
	return query.Unavailable
}

// ScoreLabel formats a similarity score as a percentage with two decimals.
// A missing score is "unavailable", never 0.
func ScoreLabel(score *float64) string {
	if score == nil {
		return query.Unavailable
	}
	return fmt.Sprintf("%.2f%%", *score*100)
}
