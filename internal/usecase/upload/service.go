// Package upload submits text and file ingestion requests under a deadline.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/domain"
	domupload "github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/metrics"
)

// DefaultTimeout is the deadline of a single upload.
const DefaultTimeout = 300 * time.Second

// Backend is the ingestion surface of the RAG backend.
type Backend interface {
	IngestText(ctx context.Context, req domupload.TextRequest) (domupload.Ack, error)
	IngestFile(ctx context.Context, req domupload.FileRequest) (domupload.Ack, error)
}

// HealthRefresher runs one out-of-band health poll.
type HealthRefresher interface {
	Refresh(ctx context.Context)
}

// Service submits uploads. It holds no busy flag; the caller serializes uploads.
type Service struct {
	backend   Backend
	refresher HealthRefresher
	logger    *zap.Logger
	timeout   time.Duration
}

// New creates an upload orchestrator. refresher may be nil.
func New(backend Backend, refresher HealthRefresher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:   backend,
		refresher: refresher,
		logger:    logger,
		timeout:   DefaultTimeout,
	}
}

// WithTimeout overrides the upload deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// SubmitText ingests raw text content.
func (s *Service) SubmitText(ctx context.Context, req domupload.TextRequest) domupload.Outcome {
	if err := req.Validate(); err != nil {
		return s.rejected("text", err)
	}
	req.Metadata = req.Metadata.Normalize()

	return s.submit(ctx, "text", "Document", func(ctx context.Context) (domupload.Ack, error) {
		return s.backend.IngestText(ctx, req)
	})
}

// SubmitFile ingests a file blob.
func (s *Service) SubmitFile(ctx context.Context, req domupload.FileRequest) domupload.Outcome {
	if err := req.Validate(); err != nil {
		return s.rejected("file", err)
	}
	req.Metadata = req.Metadata.Normalize()

	return s.submit(ctx, "file", "File", func(ctx context.Context) (domupload.Ack, error) {
		return s.backend.IngestFile(ctx, req)
	})
}

// submit runs fn under the upload deadline. The deadline is released on every path,
// and an exceeded deadline is reported as a timeout even if fn returned late without error.
func (s *Service) submit(
	ctx context.Context,
	mode, noun string,
	fn func(context.Context) (domupload.Ack, error),
) domupload.Outcome {
	start := time.Now()
	logger := s.logger.With(zap.String("mode", mode))

	uctx, cancel := context.WithTimeout(ctx, s.timeout)
	ack, err := fn(uctx)
	deadlineHit := errors.Is(uctx.Err(), context.DeadlineExceeded)
	cancel()

	if deadlineHit && !domain.IsTimeout(err) {
		err = fmt.Errorf("%w after %s: %w", domain.ErrTimeout, s.timeout, errors.Join(err, context.DeadlineExceeded))
	}

	if err != nil {
		if domain.IsTimeout(err) {
			metrics.UploadOutcomesTotal.WithLabelValues(mode, "timeout").Inc()
			logger.Warn("upload timed out", zap.Duration("timeout", s.timeout), zap.Error(err))
			return domupload.Failed(timeoutMessage(s.timeout), err)
		}
		metrics.UploadOutcomesTotal.WithLabelValues(mode, "error").Inc()
		logger.Error("upload failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return domupload.Failed(fmt.Sprintf("Error uploading %s: %v", strings.ToLower(noun), err), err)
	}

	metrics.UploadOutcomesTotal.WithLabelValues(mode, "ok").Inc()
	logger.Info("upload accepted",
		zap.String("document_id", ack.DocumentID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if s.refresher != nil {
		s.refresher.Refresh(ctx)
	}
	return domupload.Succeeded(fmt.Sprintf("%s uploaded successfully: %s", noun, ack.Message))
}

func (s *Service) rejected(mode string, err error) domupload.Outcome {
	metrics.UploadOutcomesTotal.WithLabelValues(mode, "rejected").Inc()
	return domupload.Failed(err.Error(), err)
}

func timeoutMessage(d time.Duration) string {
	return fmt.Sprintf("Upload timed out after %s. Processing large files may take several minutes; "+
		"check the document status list before resubmitting.", d)
}
