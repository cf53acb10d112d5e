package ragdesk

import (
	"context"
	"sync"

	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	domquery "github.com/kailas-cloud/ragdesk/internal/domain/query"
	domupload "github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/state"
)

// --- healthMonitor mock ---

type mockHealth struct {
	mu     sync.Mutex
	starts int
	stops  int
	pollFn func(ctx context.Context) health.SystemHealth
}

func (m *mockHealth) Start(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
}

func (m *mockHealth) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *mockHealth) Poll(ctx context.Context) health.SystemHealth {
	return m.pollFn(ctx)
}

// --- statusMonitor mock ---

type mockStatus struct {
	starts int
	stops  int
}

func (m *mockStatus) Start(_ context.Context) { m.starts++ }
func (m *mockStatus) Stop()                   { m.stops++ }

// --- queryUseCase mock ---

type mockQueryUC struct {
	submitFn func(ctx context.Context, req domquery.Request) domquery.Result
	clears   int
}

func (m *mockQueryUC) Submit(ctx context.Context, req domquery.Request) domquery.Result {
	return m.submitFn(ctx, req)
}

func (m *mockQueryUC) Clear() { m.clears++ }

// --- uploadUseCase mock ---

type mockUploadUC struct {
	textFn func(ctx context.Context, req domupload.TextRequest) domupload.Outcome
	fileFn func(ctx context.Context, req domupload.FileRequest) domupload.Outcome
}

func (m *mockUploadUC) SubmitText(ctx context.Context, req domupload.TextRequest) domupload.Outcome {
	return m.textFn(ctx, req)
}

func (m *mockUploadUC) SubmitFile(ctx context.Context, req domupload.FileRequest) domupload.Outcome {
	return m.fileFn(ctx, req)
}

func newTestConsole(q queryUseCase, u uploadUseCase, obs *observer) *Console {
	return &Console{
		store:   state.New(),
		health:  &mockHealth{pollFn: func(context.Context) health.SystemHealth { return health.Degraded() }},
		docs:    &mockStatus{},
		queries: q,
		uploads: u,
		obs:     obs,
		userID:  "analyst",
	}
}
