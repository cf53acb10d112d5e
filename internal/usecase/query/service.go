// Package query runs query submissions against the backend with a
// retrieval-only fallback and publishes the normalized result.
package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domquery "github.com/kailas-cloud/ragdesk/internal/domain/query"
	"github.com/kailas-cloud/ragdesk/internal/metrics"
	"github.com/kailas-cloud/ragdesk/internal/state"
	"github.com/kailas-cloud/ragdesk/internal/usecase/normalize"
)

// FallbackAnswer replaces the generated answer when results come from the retrieval-only endpoint.
const FallbackAnswer = "Answer generation is unavailable. Showing retrieved chunks only."

// DefaultTimeout bounds each backend call of a submission.
const DefaultTimeout = 120 * time.Second

// Backend is the query surface of the RAG backend. Both calls return the raw 2xx body.
type Backend interface {
	QueryLLM(ctx context.Context, req domquery.Request) ([]byte, error)
	QueryRetrieval(ctx context.Context, req domquery.Request) ([]byte, error)
}

// Service submits queries. It assumes serialized use: the caller owns the busy flag.
type Service struct {
	backend Backend
	sink    state.QueryResultWriter
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a query orchestrator.
func New(backend Backend, sink state.QueryResultWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		sink:    sink,
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

// WithTimeout overrides the per-call deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Submit runs one query and always terminates in exactly one of Success, Gated or Failure.
//
// The grounded-answer endpoint is tried first. If it fails at transport or HTTP
// level, or its body cannot be decoded, the retrieval-only endpoint is tried and its chunks are returned with a
// placeholder answer. A gating flag in either response yields Gated.
func (s *Service) Submit(ctx context.Context, req domquery.Request) domquery.Result {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return s.publish(domquery.Failure{Error: err.Error()}, "none")
	}

	logger := s.logger.With(zap.Int("top_k", req.TopK), zap.String("user_id", req.UserID))

	body, err := s.call(ctx, req, s.backend.QueryLLM)
	if err == nil {
		r, derr := normalize.Parse(body)
		if derr == nil {
			return s.publish(r, "primary")
		}
		err = fmt.Errorf("POST /api/v1/query-llm: %w", derr)
	}
	logger.Warn("grounded query failed, falling back to retrieval-only", zap.Error(err))

	fbody, ferr := s.call(ctx, req, s.backend.QueryRetrieval)
	if ferr != nil {
		logger.Error("retrieval-only fallback failed", zap.Error(ferr))
		return s.publish(domquery.Failure{
			Error: fmt.Sprintf("%v (fallback: %v)", err, ferr),
		}, "fallback")
	}

	r := normalize.Normalize(normalize.Raw{Body: fbody})
	if sr, ok := r.(domquery.Success); ok {
		sr.Fallback = true
		sr.GeneratedAnswer = FallbackAnswer
		r = sr
	}
	return s.publish(r, "fallback")
}

// Clear drops the published result, e.g. when the user navigates away.
func (s *Service) Clear() {
	s.sink.ClearQueryResult()
}

func (s *Service) call(
	ctx context.Context,
	req domquery.Request,
	fn func(context.Context, domquery.Request) ([]byte, error),
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx, req)
}

func (s *Service) publish(r domquery.Result, path string) domquery.Result {
	metrics.QueryResultsTotal.WithLabelValues(string(r.Kind()), path).Inc()
	s.sink.SetQueryResult(r)
	return r
}
