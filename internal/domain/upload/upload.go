// Package upload models ingestion submissions and their outcomes.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/ragdesk/internal/domain"
)

// DefaultVersion is the metadata version sent when none is given.
const DefaultVersion = "1.0"

// AllowedExtensions lists the file types the backend can ingest.
var AllowedExtensions = []string{".txt", ".md", ".pdf", ".docx", ".doc"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Metadata describes an uploaded document.
type Metadata struct {
	Title   string `json:"title" validate:"required,max=512"`
	Author  string `json:"author,omitempty" validate:"max=256"`
	Source  string `json:"source,omitempty" validate:"max=1024"`
	Version string `json:"version,omitempty" validate:"max=32"`
}

// Normalize trims whitespace and applies the default version.
func (m Metadata) Normalize() Metadata {
	m.Title = strings.TrimSpace(m.Title)
	m.Author = strings.TrimSpace(m.Author)
	m.Source = strings.TrimSpace(m.Source)
	m.Version = strings.TrimSpace(m.Version)
	if m.Version == "" {
		m.Version = DefaultVersion
	}
	return m
}

// Validate checks a normalized Metadata.
func (m Metadata) Validate() error {
	if err := validate.Struct(m); err != nil {
		return validationError(err)
	}
	return nil
}

// TextRequest submits raw text content.
type TextRequest struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Validate checks the text-mode preconditions.
func (r TextRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("document content is required: %w", domain.ErrValidation)
	}
	return r.Metadata.Normalize().Validate()
}

// FileRequest submits a file blob.
type FileRequest struct {
	Filename string
	Data     []byte
	Metadata Metadata
}

// Validate checks the file-mode preconditions.
func (r FileRequest) Validate() error {
	if r.Filename == "" || r.Data == nil {
		return fmt.Errorf("a file must be selected: %w", domain.ErrValidation)
	}
	if !AllowedExtension(r.Filename) {
		return fmt.Errorf("unsupported file type %q (supported: %s): %w",
			filepath.Ext(r.Filename), strings.Join(AllowedExtensions, ", "), domain.ErrValidation)
	}
	return r.Metadata.Normalize().Validate()
}

// AllowedExtension reports whether the filename has a supported extension.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// SuggestTitle derives a title from a filename by dropping its extension.
func SuggestTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ack is the backend acknowledgement of an ingestion request.
type Ack struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id,omitempty"`
}

// Outcome is the user-facing result of an upload.
type Outcome struct {
	OK       bool   `json:"ok"`
	TimedOut bool   `json:"timed_out"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// Succeeded builds a successful outcome.
func Succeeded(message string) Outcome {
	return Outcome{OK: true, Message: message}
}

// Failed builds a failed outcome. TimedOut is derived from err.
func Failed(message string, err error) Outcome {
	return Outcome{OK: false, TimedOut: domain.IsTimeout(err), Message: message, Err: err}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			return fmt.Errorf("%s is required: %w", field, domain.ErrValidation)
		}
		return fmt.Errorf("%s failed %s=%s: %w", field, fe.Tag(), fe.Param(), domain.ErrValidation)
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}
