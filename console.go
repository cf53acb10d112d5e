package ragdesk

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	domquery "github.com/kailas-cloud/ragdesk/internal/domain/query"
	domupload "github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/state"
	"github.com/kailas-cloud/ragdesk/internal/transport/backend"
	docstatusuc "github.com/kailas-cloud/ragdesk/internal/usecase/docstatus"
	"github.com/kailas-cloud/ragdesk/internal/usecase/healthmon"
	queryuc "github.com/kailas-cloud/ragdesk/internal/usecase/query"
	uploaduc "github.com/kailas-cloud/ragdesk/internal/usecase/upload"
)

// Internal interfaces so tests can swap the use cases.
type healthMonitor interface {
	Start(ctx context.Context)
	Stop()
	Poll(ctx context.Context) health.SystemHealth
}

type statusMonitor interface {
	Start(ctx context.Context)
	Stop()
}

type queryUseCase interface {
	Submit(ctx context.Context, req domquery.Request) domquery.Result
	Clear()
}

type uploadUseCase interface {
	SubmitText(ctx context.Context, req domupload.TextRequest) domupload.Outcome
	SubmitFile(ctx context.Context, req domupload.FileRequest) domupload.Outcome
}

// Console is the ragdesk entry point. It is safe for concurrent use.
type Console struct {
	store   *state.Store
	health  healthMonitor
	docs    statusMonitor
	queries queryUseCase
	uploads uploadUseCase
	obs     *observer
	userID  string

	queryBusy  atomic.Bool
	uploadBusy atomic.Bool
}

// New creates a Console. No request is made until Start or a submission.
func New(opts ...Option) (*Console, error) {
	cfg := &consoleConfig{baseURL: DefaultBaseURL}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(cfg.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ragdesk: invalid base url %q", cfg.baseURL)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(&backend.Config{
		BaseURL:    cfg.baseURL,
		Logger:     cfg.logger,
		HTTPClient: cfg.httpClient,
	})
	return wireConsole(client, cfg, obs), nil
}

// backendAPI is the full backend surface the use cases need.
type backendAPI interface {
	healthmon.Fetcher
	docstatusuc.Fetcher
	queryuc.Backend
	uploaduc.Backend
}

func wireConsole(b backendAPI, cfg *consoleConfig, obs *observer) *Console {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := state.New()

	healthSvc := healthmon.New(b, store, logger.Named("health")).
		WithInterval(cfg.healthInterval).
		WithRequestTimeout(cfg.requestTimeout)
	docSvc := docstatusuc.New(b, store, logger.Named("docstatus")).
		WithInterval(cfg.statusInterval).
		WithRequestTimeout(cfg.requestTimeout)
	querySvc := queryuc.New(b, store, logger.Named("query")).
		WithTimeout(cfg.queryTimeout)
	uploadSvc := uploaduc.New(b, healthSvc, logger.Named("upload")).
		WithTimeout(cfg.uploadTimeout)

	return &Console{
		store:   store,
		health:  healthSvc,
		docs:    docSvc,
		queries: querySvc,
		uploads: uploadSvc,
		obs:     obs,
		userID:  cfg.userID,
	}
}

// Start launches the health monitor (immediate poll, then every interval)
// and the document-status monitor (first poll after one interval).
// The monitors stop when ctx is cancelled or Stop is called.
func (c *Console) Start(ctx context.Context) {
	c.health.Start(ctx)
	c.docs.Start(ctx)
}

// Stop cancels both monitors and waits for in-flight polls.
// A poll cancelled by Stop does not write state.
func (c *Console) Stop() {
	c.docs.Stop()
	c.health.Stop()
}

// Snapshot returns a copy of the current state.
func (c *Console) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// Subscribe calls fn after every state change until cancel is called.
// fn must not block.
func (c *Console) Subscribe(fn func(Snapshot)) (cancel func()) {
	return c.store.Subscribe(fn)
}

// State exposes the read side of the state for presentation layers.
func (c *Console) State() state.Reader {
	return c.store
}

// RefreshHealth polls health once outside the schedule and returns the published snapshot.
// If ctx is cancelled mid-poll the state is left alone and the last published
// snapshot is returned instead (degraded when none exists yet).
func (c *Console) RefreshHealth(ctx context.Context) SystemHealth {
	start := time.Now()
	h := c.health.Poll(ctx)
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		c.obs.observe("refresh_health", "cancelled", start, err)
		if stored := c.store.Snapshot().Health; stored != nil {
			return *stored
		}
		return h
	}

	outcome := "ok"
	if !h.IsHealthy() {
		outcome = "unhealthy"
	}
	c.obs.observe("refresh_health", outcome, start, nil)
	return h
}

// Query submits a query and publishes its result. The returned Result is
// never nil when err is nil. err is ErrBusy if another query is in flight.
func (c *Console) Query(ctx context.Context, req QueryRequest) (Result, error) {
	start := time.Now()
	if !c.queryBusy.CompareAndSwap(false, true) {
		c.obs.observe("query", "busy", start, domain.ErrBusy)
		return nil, fmt.Errorf("query: %w", domain.ErrBusy)
	}
	defer c.queryBusy.Store(false)

	if req.UserID == "" {
		req.UserID = c.userID
	}

	r := c.queries.Submit(ctx, req)

	var err error
	if f, ok := r.(Failure); ok {
		err = errors.New(f.Error)
	}
	c.obs.observe("query", string(r.Kind()), start, err)
	return r, nil
}

// ClearQuery drops the last query result.
func (c *Console) ClearQuery() {
	c.queries.Clear()
}

// QueryInFlight reports whether a query is being processed.
func (c *Console) QueryInFlight() bool {
	return c.queryBusy.Load()
}

// UploadText ingests text content. err is ErrBusy if another upload is in
// flight; every other failure is reported in the outcome.
func (c *Console) UploadText(ctx context.Context, req TextUpload) (UploadOutcome, error) {
	return c.upload(ctx, "upload_text", func(ctx context.Context) domupload.Outcome {
		return c.uploads.SubmitText(ctx, req)
	})
}

// UploadFile ingests a file. err is ErrBusy if another upload is in flight.
func (c *Console) UploadFile(ctx context.Context, req FileUpload) (UploadOutcome, error) {
	return c.upload(ctx, "upload_file", func(ctx context.Context) domupload.Outcome {
		return c.uploads.SubmitFile(ctx, req)
	})
}

// UploadInFlight reports whether an upload is being processed.
func (c *Console) UploadInFlight() bool {
	return c.uploadBusy.Load()
}

func (c *Console) upload(
	ctx context.Context,
	op string,
	fn func(context.Context) domupload.Outcome,
) (UploadOutcome, error) {
	start := time.Now()
	if !c.uploadBusy.CompareAndSwap(false, true) {
		c.obs.observe(op, "busy", start, domain.ErrBusy)
		return UploadOutcome{}, fmt.Errorf("%s: %w", op, domain.ErrBusy)
	}
	defer c.uploadBusy.Store(false)

	out := fn(ctx)

	outcome := "ok"
	switch {
	case out.TimedOut:
		outcome = "timeout"
	case !out.OK:
		outcome = "error"
	}
	c.obs.observe(op, outcome, start, out.Err)
	return out, nil
}
