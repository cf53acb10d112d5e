package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	"github.com/kailas-cloud/ragdesk/internal/domain/docstatus"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	"github.com/kailas-cloud/ragdesk/internal/domain/query"
	"github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterBackendMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(&Config{BaseURL: server.URL + "/", Logger: zap.NewNop()})
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != PathHealth {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"healthy","services":{"api_gateway":"healthy","retrieval_service":"unhealthy"},`+
			`"system_stats":{"indexed_documents":4,"faiss_vectors":120,"total_queries":9}}`)
	})

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !h.IsHealthy() {
		t.Errorf("status = %q", h.Status)
	}
	if health.ServiceHealthy(h.Services.RetrievalService) {
		t.Error("retrieval service should be unhealthy")
	}
	if h.Stats.FAISSVectors != 120 || h.Stats.IndexedDocuments != 4 || h.Stats.TotalQueries != 9 {
		t.Errorf("unexpected stats: %+v", h.Stats)
	}
}

func TestHealth_MissingStatusIsDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"services":{}}`)
	})

	_, err := c.Health(context.Background())
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDocumentStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathDocumentStatus {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{"doc-1":{"status":"INDEXED","details":{"step":"done","chunk_count":7}},"doc-2":{"status":"PENDING"}}`)
	})

	m, err := c.DocumentStatus(context.Background())
	if err != nil {
		t.Fatalf("DocumentStatus failed: %v", err)
	}
	if m["doc-1"].Status != docstatus.Indexed || *m["doc-1"].Details.ChunkCount != 7 {
		t.Errorf("doc-1 = %+v", m["doc-1"])
	}
	if m["doc-2"].Details != nil {
		t.Error("doc-2 should have no details")
	}
}

func TestDocumentStatus_NullIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `null`)
	})

	m, err := c.DocumentStatus(context.Background())
	if err != nil {
		t.Fatalf("DocumentStatus failed: %v", err)
	}
	if m == nil || len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestQueryEndpoints(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(*Client, context.Context, query.Request) ([]byte, error)
	}{
		{"llm", PathQueryLLM, (*Client).QueryLLM},
		{"retrieval", PathQuery, (*Client).QueryRetrieval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != tt.path {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"query":"what is X?","topK":5,"userId":"technical-user"}` {
					t.Errorf("unexpected body: %s", body)
				}
				io.WriteString(w, `{"results":[]}`)
			})

			req := query.Request{Query: "what is X?", TopK: 5}.WithDefaults()
			body, err := tt.call(c, context.Background(), req)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if string(body) != `{"results":[]}` {
				t.Errorf("body = %s", body)
			}
		})
	}
}

func TestIngestText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathDocuments {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"content":"hello"`) || !strings.Contains(string(body), `"version":"1.0"`) {
			t.Errorf("unexpected body: %s", body)
		}
		io.WriteString(w, `{"message":"Document queued","document_id":"doc-7"}`)
	})

	ack, err := c.IngestText(context.Background(), upload.TextRequest{
		Content:  "hello",
		Metadata: upload.Metadata{Title: "Greeting"}.Normalize(),
	})
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if ack.Message != "Document queued" || ack.DocumentID != "doc-7" {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestIngestFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathUploadFile {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("title"); got != "Notes" {
			t.Errorf("title = %q", got)
		}
		if got := r.FormValue("author"); got != "ops" {
			t.Errorf("author = %q", got)
		}
		if _, ok := r.MultipartForm.Value["source"]; ok {
			t.Error("empty source should not be sent")
		}

		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "notes.txt" || string(data) != "plain notes\n" {
			t.Errorf("file = %q %q", hdr.Filename, data)
		}
		if ct := hdr.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("file content type = %q", ct)
		}
		io.WriteString(w, `{"message":"File stored"}`)
	})

	ack, err := c.IngestFile(context.Background(), upload.FileRequest{
		Filename: "notes.txt",
		Data:     []byte("plain notes\n"),
		Metadata: upload.Metadata{Title: "Notes", Author: "ops"},
	})
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if ack.Message != "File stored" {
		t.Errorf("message = %q", ack.Message)
	}
}

func TestHTTPStatusError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"message field", `{"message":"index not ready"}`, "HTTP error! status: 503 - index not ready"},
		{"detail field", `{"detail":"bad topK"}`, "HTTP error! status: 503 - bad topK"},
		{"nested error", `{"error":{"code":"X","message":"nested"}}`, "HTTP error! status: 503 - nested"},
		{"plain text", `upstream down`, "HTTP error! status: 503 - upstream down"},
		{"empty", ``, "HTTP error! status: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				io.WriteString(w, tt.body)
			})

			_, err := c.Health(context.Background())
			if !errors.Is(err, domain.ErrHTTPStatus) {
				t.Fatalf("expected ErrHTTPStatus, got %v", err)
			}
			var se *domain.HTTPStatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected *HTTPStatusError, got %T", err)
			}
			if se.StatusCode != http.StatusServiceUnavailable {
				t.Errorf("status = %d", se.StatusCode)
			}
			if se.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", se.Error(), tt.wantMsg)
			}
		})
	}
}

func TestErrorMessage_Truncates(t *testing.T) {
	msg := errorMessage([]byte(strings.Repeat("x", 500)))
	if len(msg) != maxErrorBodyLen+3 {
		t.Errorf("len = %d", len(msg))
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(&Config{BaseURL: url})
	_, err := c.DocumentStatus(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if domain.IsTimeout(err) {
		t.Error("connection refused is not a timeout")
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.QueryLLM(ctx, query.Request{Query: "slow", TopK: 3})
	if !domain.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html>oops</html>`)
	})

	_, err := c.IngestText(context.Background(), upload.TextRequest{Content: "x", Metadata: upload.Metadata{Title: "t"}})
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
