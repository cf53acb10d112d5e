// Package healthmon polls backend health and publishes the snapshot.
package healthmon

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	"github.com/kailas-cloud/ragdesk/internal/metrics"
	"github.com/kailas-cloud/ragdesk/internal/scheduler"
	"github.com/kailas-cloud/ragdesk/internal/state"
)

// DefaultInterval is the health poll cadence.
const DefaultInterval = 30 * time.Second

// Service polls health on a schedule and on demand. Failures are never
// returned; they are reflected as the degraded snapshot.
type Service struct {
	fetcher        Fetcher
	sink           state.HealthWriter
	logger         *zap.Logger
	interval       time.Duration
	requestTimeout time.Duration
	task           *scheduler.Task
}

// New creates a health monitor polling every DefaultInterval.
func New(fetcher Fetcher, sink state.HealthWriter, logger *zap.Logger) *Service {
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

// Poll fetches health once, writes the snapshot and returns it.
func (s *Service) Poll(ctx context.Context) health.SystemHealth {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	h, err := s.fetcher.Health(ctx)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		// Torn down mid-request: the consumer is gone, leave state alone.
		return health.Degraded()
	}
	if err != nil {
		metrics.PollFailuresTotal.WithLabelValues("health").Inc()
		s.logger.Warn("health poll failed, publishing degraded snapshot", zap.Error(err))
		h = health.Degraded()
	}

	s.sink.SetHealth(h)
	return h
}

// Refresh runs one out-of-band poll outside the schedule.
func (s *Service) Refresh(ctx context.Context) {
	s.Poll(ctx)
}

// Start polls immediately and then on every interval until Stop.
func (s *Service) Start(ctx context.Context) {
	if s.task == nil {
		s.task = scheduler.New("health", s.interval, func(ctx context.Context) { s.Poll(ctx) },
			scheduler.Immediate(), scheduler.WithLogger(s.logger))
	}
	s.task.Start(ctx)
}

// Stop cancels the schedule and waits for an in-flight poll.
func (s *Service) Stop() {
	if s.task != nil {
		s.task.Stop()
	}
}
