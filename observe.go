package ragdesk

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// consoleMetrics counts Console calls. The outcome label is the result kind
// for queries (success, gated, failure), the upload outcome for uploads
// (ok, timeout, error) and "busy" for calls rejected by the busy flag.
type consoleMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newConsoleMetrics(reg prometheus.Registerer) (*consoleMetrics, error) {
	m := &consoleMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragdesk",
			Subsystem: "console",
			Name:      "operations_total",
			Help:      "Console queries, uploads and health refreshes by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragdesk",
			Subsystem: "console",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of console operations, including busy rejections.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("ragdesk: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("ragdesk: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for console operations.
type observer struct {
	logger  *zap.Logger
	metrics *consoleMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *consoleMetrics
	if reg != nil {
		var err error
		m, err = newConsoleMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one operation under the given outcome label.
func (o *observer) observe(op, outcome string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("operation failed",
				zap.String("op", op),
				zap.String("outcome", outcome),
				zap.Duration("duration", dur),
				zap.Error(err),
			)
		} else {
			o.logger.Debug("operation completed",
				zap.String("op", op),
				zap.String("outcome", outcome),
				zap.Duration("duration", dur),
			)
		}
	}
}
