// Package chi serves the local console API over a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	domquery "github.com/kailas-cloud/ragdesk/internal/domain/query"
	domupload "github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/logger"
	"github.com/kailas-cloud/ragdesk/internal/state"
	"github.com/kailas-cloud/ragdesk/internal/version"
)

const (
	maxJSONBody   = 8 << 20
	maxUploadBody = 64 << 20
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeBusy             = "busy"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response without a domain payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Console is the application surface the server exposes.
type Console interface {
	Snapshot() state.Snapshot
	Subscribe(fn func(state.Snapshot)) (cancel func())
	Query(ctx context.Context, req domquery.Request) (domquery.Result, error)
	ClearQuery()
	UploadText(ctx context.Context, req domupload.TextRequest) (domupload.Outcome, error)
	UploadFile(ctx context.Context, req domupload.FileRequest) (domupload.Outcome, error)
	RefreshHealth(ctx context.Context) health.SystemHealth
}

// Server handles the console API.
type Server struct {
	console Console
	logger  *zap.Logger
	events  *eventStream
}

// NewServer creates a console API server.
func NewServer(console Console, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		console: console,
		logger:  logger,
		events:  newEventStream(console, logger),
	}
}

// Mount registers all routes on r.
func (s *Server) Mount(r gochi.Router) {
	r.Get("/healthz", s.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r gochi.Router) {
		r.Get("/state", s.GetState)
		r.Post("/query", s.SubmitQuery)
		r.Delete("/query", s.ClearQuery)
		r.Post("/documents", s.UploadText)
		r.Post("/upload-file", s.UploadFile)
		r.Post("/health/refresh", s.RefreshHealth)
		r.Get("/events", s.events.ServeHTTP)
	})
}

// Healthz handles GET /healthz. It reports the console process, not the backend.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// GetState handles GET /api/state.
func (s *Server) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.console.Snapshot())
}

// SubmitQuery handles POST /api/query. Every processed query answers 200 with
// the result; the result kind tells success, gating and failure apart.
func (s *Server) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req domquery.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.TopK == 0 {
		req.TopK = domquery.DefaultTopK
	}

	res, err := s.console.Query(r.Context(), req)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClearQuery handles DELETE /api/query.
func (s *Server) ClearQuery(w http.ResponseWriter, _ *http.Request) {
	s.console.ClearQuery()
	w.WriteHeader(http.StatusNoContent)
}

// UploadText handles POST /api/documents.
func (s *Server) UploadText(w http.ResponseWriter, r *http.Request) {
	var req domupload.TextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.console.UploadText(r.Context(), req)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	writeJSON(w, outcomeStatus(out), out)
}

// UploadFile handles POST /api/upload-file (multipart: file, title, author, source, version).
// A missing title field defaults to the filename without extension; an empty one is rejected.
func (s *Server) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "a file must be selected")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "read file: "+err.Error())
		return
	}

	md := domupload.Metadata{
		Title:   r.FormValue("title"),
		Author:  r.FormValue("author"),
		Source:  r.FormValue("source"),
		Version: r.FormValue("version"),
	}
	if _, ok := r.MultipartForm.Value["title"]; !ok {
		md.Title = domupload.SuggestTitle(hdr.Filename)
	}

	out, err := s.console.UploadFile(r.Context(), domupload.FileRequest{
		Filename: hdr.Filename,
		Data:     data,
		Metadata: md,
	})
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	writeJSON(w, outcomeStatus(out), out)
}

// RefreshHealth handles POST /api/health/refresh.
func (s *Server) RefreshHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.console.RefreshHealth(r.Context()))
}

// outcomeStatus maps an upload outcome to an HTTP status. The body always carries the outcome.
func outcomeStatus(out domupload.Outcome) int {
	switch {
	case out.OK:
		return http.StatusOK
	case errors.Is(out.Err, domain.ErrValidation):
		return http.StatusBadRequest
	case out.TimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	if errors.Is(err, domain.ErrBusy) {
		log.Info("submission rejected", zap.Error(err))
		writeError(w, http.StatusConflict, CodeBusy, domain.ErrBusy.Error())
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
