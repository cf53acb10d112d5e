// Package backend is the HTTP transport to the RAG backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	"github.com/kailas-cloud/ragdesk/internal/metrics"
)

// Endpoint paths. The base URL is configurable, the paths are not.
const (
	PathHealth         = "/health"
	PathDocumentStatus = "/api/v1/documents/status"
	PathQueryLLM       = "/api/v1/query-llm"
	PathQuery          = "/api/v1/query"
	PathDocuments      = "/api/v1/documents"
	PathUploadFile     = "/api/v1/upload-file"
)

const maxErrorBodyLen = 200

// Config holds the backend client settings.
type Config struct {
	BaseURL string
	Logger  *zap.Logger
	// HTTPClient overrides the underlying transport (tests, custom TLS).
	HTTPClient *http.Client
}

// Client talks to the RAG backend. It never retries; the next poll or a user resubmission is the retry.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a backend client.
func NewClient(cfg *Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(logger.Sugar())

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get("X-Request-ID") == "" {
			r.SetHeader("X-Request-ID", uuid.NewString())
		}
		return nil
	})

	return &Client{http: rc, logger: logger}
}

// do executes the request and classifies failures into the domain error taxonomy.
// On success it returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, r *resty.Request) ([]byte, error) {
	start := time.Now()
	resp, err := r.SetContext(ctx).Execute(method, path)
	metrics.BackendRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.BackendRequestsTotal.WithLabelValues(path, "timeout").Inc()
			return nil, fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrTimeout, err)
		}
		metrics.BackendRequestsTotal.WithLabelValues(path, "transport").Inc()
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrTransport, err)
	}

	if !resp.IsSuccess() {
		metrics.BackendRequestsTotal.WithLabelValues(path, "http_status").Inc()
		return nil, fmt.Errorf("%s %s: %w", method, path,
			domain.NewHTTPStatusError(resp.StatusCode(), errorMessage(resp.Body())))
	}

	metrics.BackendRequestsTotal.WithLabelValues(path, "ok").Inc()
	c.logger.Debug("backend request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()),
	)
	return resp.Body(), nil
}

// decodeFailed records a decode error against the endpoint and wraps err.
func decodeFailed(path string, err error) error {
	metrics.BackendRequestsTotal.WithLabelValues(path, "decode").Inc()
	return fmt.Errorf("decode %s: %w: %w", path, domain.ErrDecode, err)
}

// errorMessage extracts a best-effort message from an error body.
// JSON bodies are searched for message, error and detail; other bodies are returned truncated.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if gjson.ValidBytes(body) {
		for _, field := range []string{"message", "error", "detail"} {
			v := gjson.GetBytes(body, field)
			if v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
			if v.IsObject() {
				if m := v.Get("message"); m.Type == gjson.String && m.String() != "" {
					return m.String()
				}
			}
		}
		return ""
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBodyLen {
		msg = msg[:maxErrorBodyLen] + "..."
	}
	return msg
}
