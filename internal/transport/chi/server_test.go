package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	domquery "github.com/kailas-cloud/ragdesk/internal/domain/query"
	domupload "github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/state"
)

// --- Mocks ---

type mockConsole struct {
	*state.Store

	mu       sync.Mutex
	queryFn  func(req domquery.Request) (domquery.Result, error)
	textFn   func(req domupload.TextRequest) (domupload.Outcome, error)
	fileFn   func(req domupload.FileRequest) (domupload.Outcome, error)
	lastFile domupload.FileRequest
	clears   int
}

func (m *mockConsole) Query(_ context.Context, req domquery.Request) (domquery.Result, error) {
	return m.queryFn(req)
}

func (m *mockConsole) ClearQuery() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
}

func (m *mockConsole) UploadText(_ context.Context, req domupload.TextRequest) (domupload.Outcome, error) {
	return m.textFn(req)
}

func (m *mockConsole) UploadFile(_ context.Context, req domupload.FileRequest) (domupload.Outcome, error) {
	m.mu.Lock()
	m.lastFile = req
	m.mu.Unlock()
	return m.fileFn(req)
}

func (m *mockConsole) RefreshHealth(_ context.Context) health.SystemHealth {
	h := health.Degraded()
	m.SetHealth(h)
	return h
}

func newTestServer(t *testing.T, m *mockConsole) *httptest.Server {
	t.Helper()
	if m.Store == nil {
		m.Store = state.New()
	}
	r := gochi.NewRouter()
	NewServer(m, nil).Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &mockConsole{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("status %d, body %v", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockConsole{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGetState(t *testing.T) {
	m := &mockConsole{Store: state.New()}
	m.SetHealth(health.SystemHealth{Status: health.StatusHealthy})
	srv := newTestServer(t, m)

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	var body struct {
		Health  *health.SystemHealth `json:"health"`
		Version uint64               `json:"version"`
	}
	decodeBody(t, resp, &body)
	if body.Version != 1 || body.Health == nil || body.Health.Status != health.StatusHealthy {
		t.Errorf("unexpected state: %+v", body)
	}
}

func TestSubmitQuery(t *testing.T) {
	var got domquery.Request
	m := &mockConsole{queryFn: func(req domquery.Request) (domquery.Result, error) {
		got = req
		return domquery.Gated{GatingReason: "low similarity"}, nil
	}}
	srv := newTestServer(t, m)

	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(`{"query":"what is X?"}`))
	if err != nil {
		t.Fatalf("POST /api/query: %v", err)
	}
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body["kind"] != "gated" || body["gating_reason"] != "low similarity" {
		t.Errorf("unexpected body: %v", body)
	}
	if got.TopK != domquery.DefaultTopK {
		t.Errorf("topK = %d, want default", got.TopK)
	}
}

func TestSubmitQuery_Busy(t *testing.T) {
	m := &mockConsole{queryFn: func(domquery.Request) (domquery.Result, error) {
		return nil, fmt.Errorf("query: %w", domain.ErrBusy)
	}}
	srv := newTestServer(t, m)

	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(`{"query":"q","topK":3}`))
	if err != nil {
		t.Fatalf("POST /api/query: %v", err)
	}
	var body ErrorResponse
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusConflict || body.Code != CodeBusy {
		t.Errorf("status %d, body %+v", resp.StatusCode, body)
	}
}

func TestSubmitQuery_BadJSON(t *testing.T) {
	m := &mockConsole{queryFn: func(domquery.Request) (domquery.Result, error) {
		t.Error("console must not be called")
		return nil, nil
	}}
	srv := newTestServer(t, m)

	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(`{"query":`))
	if err != nil {
		t.Fatalf("POST /api/query: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestClearQuery(t *testing.T) {
	m := &mockConsole{}
	srv := newTestServer(t, m)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/query", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/query: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if m.clears != 1 {
		t.Errorf("clears = %d", m.clears)
	}
}

func TestUploadText_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		out        domupload.Outcome
		err        error
		wantStatus int
	}{
		{"ok", domupload.Succeeded("Document uploaded successfully: queued"), nil, http.StatusOK},
		{"validation", domupload.Failed("title is required", fmt.Errorf("title is required: %w", domain.ErrValidation)), nil, http.StatusBadRequest},
		{"timeout", domupload.Failed("Upload timed out", domain.ErrTimeout), nil, http.StatusGatewayTimeout},
		{"backend error", domupload.Failed("Error uploading document", domain.NewHTTPStatusError(500, "")), nil, http.StatusBadGateway},
		{"busy", domupload.Outcome{}, domain.ErrBusy, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockConsole{textFn: func(domupload.TextRequest) (domupload.Outcome, error) {
				return tt.out, tt.err
			}}
			srv := newTestServer(t, m)

			resp, err := http.Post(srv.URL+"/api/documents", "application/json",
				strings.NewReader(`{"content":"hello","metadata":{"title":"Hi"}}`))
			if err != nil {
				t.Fatalf("POST /api/documents: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	m := &mockConsole{fileFn: func(domupload.FileRequest) (domupload.Outcome, error) {
		return domupload.Succeeded("File uploaded successfully: stored"), nil
	}}
	srv := newTestServer(t, m)

	body, ct := multipartBody(t, map[string]string{"title": "Guide", "author": "ops"}, "guide.md", "# Guide")
	resp, err := http.Post(srv.URL+"/api/upload-file", ct, body)
	if err != nil {
		t.Fatalf("POST /api/upload-file: %v", err)
	}
	var out domupload.Outcome
	decodeBody(t, resp, &out)

	if resp.StatusCode != http.StatusOK || !out.OK {
		t.Errorf("status %d, outcome %+v", resp.StatusCode, out)
	}
	if m.lastFile.Filename != "guide.md" || string(m.lastFile.Data) != "# Guide" {
		t.Errorf("file = %q %q", m.lastFile.Filename, m.lastFile.Data)
	}
	if m.lastFile.Metadata.Title != "Guide" || m.lastFile.Metadata.Author != "ops" {
		t.Errorf("metadata = %+v", m.lastFile.Metadata)
	}
}

func TestUploadFile_TitleDefaultsToFilename(t *testing.T) {
	m := &mockConsole{fileFn: func(domupload.FileRequest) (domupload.Outcome, error) {
		return domupload.Succeeded("ok"), nil
	}}
	srv := newTestServer(t, m)

	body, ct := multipartBody(t, nil, "release-notes.txt", "notes")
	resp, err := http.Post(srv.URL+"/api/upload-file", ct, body)
	if err != nil {
		t.Fatalf("POST /api/upload-file: %v", err)
	}
	resp.Body.Close()

	if m.lastFile.Metadata.Title != "release-notes" {
		t.Errorf("title = %q", m.lastFile.Metadata.Title)
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	m := &mockConsole{fileFn: func(domupload.FileRequest) (domupload.Outcome, error) {
		t.Error("console must not be called")
		return domupload.Outcome{}, nil
	}}
	srv := newTestServer(t, m)

	body, ct := multipartBody(t, map[string]string{"title": "x"}, "", "")
	resp, err := http.Post(srv.URL+"/api/upload-file", ct, body)
	if err != nil {
		t.Fatalf("POST /api/upload-file: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRefreshHealth(t *testing.T) {
	srv := newTestServer(t, &mockConsole{})

	resp, err := http.Post(srv.URL+"/api/health/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/health/refresh: %v", err)
	}
	var h health.SystemHealth
	decodeBody(t, resp, &h)
	if h.Status != health.StatusUnhealthy {
		t.Errorf("status = %q", h.Status)
	}
}

func TestEvents_StreamsSnapshots(t *testing.T) {
	m := &mockConsole{Store: state.New()}
	srv := newTestServer(t, m)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first state.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if first.Version != 0 {
		t.Errorf("initial version = %d", first.Version)
	}

	m.SetHealth(health.SystemHealth{Status: health.StatusHealthy})

	var next struct {
		Health  *health.SystemHealth `json:"health"`
		Version uint64               `json:"version"`
	}
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.Version != 1 || next.Health == nil || !next.Health.IsHealthy() {
		t.Errorf("unexpected update: %+v", next)
	}
}

func TestOffer_KeepsLatest(t *testing.T) {
	ch := make(chan state.Snapshot, 1)
	offer(ch, state.Snapshot{Version: 1})
	offer(ch, state.Snapshot{Version: 2})

	if got := (<-ch).Version; got != 2 {
		t.Errorf("version = %d, want 2", got)
	}
}

func TestOffer_OutOfOrderKeepsNewer(t *testing.T) {
	ch := make(chan state.Snapshot, 1)
	offer(ch, state.Snapshot{Version: 6})
	offer(ch, state.Snapshot{Version: 5})

	if got := (<-ch).Version; got != 6 {
		t.Errorf("version = %d, want 6", got)
	}
	select {
	case s := <-ch:
		t.Errorf("unexpected extra snapshot %d", s.Version)
	default:
	}
}
