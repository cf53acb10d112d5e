package ragdesk

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultBaseURL is the backend address used when WithBaseURL is not given.
const DefaultBaseURL = "http://localhost:3000"

// Option configures the Console.
type Option interface {
	apply(*consoleConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*consoleConfig)

func (f optionFunc) apply(c *consoleConfig) { f(c) }

type consoleConfig struct {
	baseURL    string
	httpClient *http.Client
	userID     string

	healthInterval time.Duration
	statusInterval time.Duration
	requestTimeout time.Duration
	queryTimeout   time.Duration
	uploadTimeout  time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithBaseURL sets the backend base URL. Endpoint paths are fixed.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *consoleConfig) {
		c.baseURL = url
	})
}

// WithHTTPClient overrides the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *consoleConfig) {
		c.httpClient = hc
	})
}

// WithUserID sets the user id sent with queries that carry none.
// Default: "technical-user".
func WithUserID(id string) Option {
	return optionFunc(func(c *consoleConfig) {
		c.userID = id
	})
}

// WithPolling sets the health and document-status poll intervals.
// Defaults: 30s and 5s. Zero keeps the default.
func WithPolling(health, status time.Duration) Option {
	return optionFunc(func(c *consoleConfig) {
		c.healthInterval = health
		c.statusInterval = status
	})
}

// WithRequestTimeout bounds each poll request.
func WithRequestTimeout(d time.Duration) Option {
	return optionFunc(func(c *consoleConfig) {
		c.requestTimeout = d
	})
}

// WithQueryTimeout bounds each backend call of a query. Default: 120s.
func WithQueryTimeout(d time.Duration) Option {
	return optionFunc(func(c *consoleConfig) {
		c.queryTimeout = d
	})
}

// WithUploadTimeout bounds a single upload. Default: 300s.
func WithUploadTimeout(d time.Duration) Option {
	return optionFunc(func(c *consoleConfig) {
		c.uploadTimeout = d
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *consoleConfig) {
		c.logger = l
	})
}

// WithPrometheus registers console metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *consoleConfig) {
		c.metricsReg = reg
	})
}
