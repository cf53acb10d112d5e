// Package docstatus polls per-document ingestion status and merges it into state.
package docstatus

import (
	"context"
	"time"

	"go.uber.org/zap"

	domstatus "github.com/kailas-cloud/ragdesk/internal/domain/docstatus"
	"github.com/kailas-cloud/ragdesk/internal/metrics"
	"github.com/kailas-cloud/ragdesk/internal/scheduler"
	"github.com/kailas-cloud/ragdesk/internal/state"
)

// DefaultInterval is the document-status poll cadence.
const DefaultInterval = 5 * time.Second

// Fetcher retrieves the document-status map.
type Fetcher interface {
	DocumentStatus(ctx context.Context) (domstatus.Map, error)
}

// Service polls ingestion status. Only a successful poll touches state;
// a failed tick keeps the previous map so the list never flickers to empty.
type Service struct {
	fetcher        Fetcher
	sink           state.DocumentStatusWriter
	logger         *zap.Logger
	interval       time.Duration
	requestTimeout time.Duration
	task           *scheduler.Task
}

// New creates a document-status monitor polling every DefaultInterval.
func New(fetcher Fetcher, sink state.DocumentStatusWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher:  fetcher,
		sink:     sink,
		logger:   logger,
		interval: DefaultInterval,
	}
}

// WithInterval overrides the poll cadence.
func (s *Service) WithInterval(d time.Duration) *Service {
	if d > 0 {
		s.interval = d
	}
	return s
}

// WithRequestTimeout bounds each poll request.
func (s *Service) WithRequestTimeout(d time.Duration) *Service {
	s.requestTimeout = d
	return s
}

// Poll fetches status once and merges it. It reports whether state was updated.
func (s *Service) Poll(ctx context.Context) bool {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	update, err := s.fetcher.DocumentStatus(ctx)
	if err != nil {
		metrics.PollFailuresTotal.WithLabelValues("document_status").Inc()
		s.logger.Debug("document status poll failed, keeping previous map", zap.Error(err))
		return false
	}

	s.sink.MergeDocumentStatus(update)
	return true
}

// Start polls on every interval until Stop. The first poll happens after one interval.
func (s *Service) Start(ctx context.Context) {
	if s.task == nil {
		s.task = scheduler.New("document_status", s.interval, func(ctx context.Context) { s.Poll(ctx) },
			scheduler.WithLogger(s.logger))
	}
	s.task.Start(ctx)
}

// Stop cancels the schedule and waits for an in-flight poll.
func (s *Service) Stop() {
	if s.task != nil {
		s.task.Stop()
	}
}
