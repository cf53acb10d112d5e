// Package scheduler runs recurring jobs with an explicit Start/Stop lifecycle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one run of a recurring task. ctx is cancelled by Stop.
type Job func(ctx context.Context)

// Option configures a Task.
type Option func(*Task)

// Immediate runs the job once on Start, before the first interval elapses.
func Immediate() Option {
	return func(t *Task) { t.immediate = true }
}

// WithLogger sets the logger used for scheduling events and recovered panics.
func WithLogger(l *zap.Logger) Option {
	return func(t *Task) { t.logger = l }
}

// Task is a disposable handle for a recurring job. Every Start must be paired with Stop.
// After Stop returns no run is in flight and none will start.
type Task struct {
	name      string
	interval  time.Duration
	immediate bool
	job       Job
	logger    *zap.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a stopped Task. Intervals under one second are rounded up to one second.
func New(name string, interval time.Duration, job Job, opts ...Option) *Task {
	t := &Task{
		name:     name,
		interval: interval,
		job:      job,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start schedules the job. Calling Start on a running task is a no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	l := cronLogger{t.logger.With(zap.String("task", t.name))}

	wrapped := cron.NewChain(cron.Recover(l), cron.SkipIfStillRunning(l)).
		Then(cron.FuncJob(func() {
			if runCtx.Err() != nil {
				return
			}
			t.job(runCtx)
		}))

	c := cron.New(cron.WithLogger(l))
	c.Schedule(cron.Every(t.interval), wrapped)
	c.Start()

	t.cron = c
	t.cancel = cancel

	if t.immediate {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			wrapped.Run()
		}()
	}

	t.logger.Debug("task started",
		zap.String("task", t.name),
		zap.Duration("interval", t.interval),
		zap.Bool("immediate", t.immediate),
	)
}

// Stop cancels the in-flight run, waits for it and unschedules the job.
// Stop on a stopped task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron == nil {
		return
	}

	t.cancel()
	<-t.cron.Stop().Done()
	t.wg.Wait()

	t.cron = nil
	t.cancel = nil
	t.logger.Debug("task stopped", zap.String("task", t.name))
}

// Running reports whether the task is started.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cron != nil
}

// cronLogger adapts zap to cron.Logger. Cron's chatty info events go to debug.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
