package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragdesk/internal/domain"
)

// DefaultUserID is sent when the caller does not identify the user.
const DefaultUserID = "technical-user"

// DefaultTopK is the preselected number of chunks.
const DefaultTopK = 5

// AllowedTopK lists the accepted topK values.
var AllowedTopK = []int{3, 5, 10}

// Request is a single query submission.
type Request struct {
	Query  string `json:"query"`
	TopK   int    `json:"topK"`
	UserID string `json:"userId"`
}

// Validate checks the preconditions callers must enforce before submitting.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	for _, k := range AllowedTopK {
		if r.TopK == k {
			return nil
		}
	}
	return fmt.Errorf("topK must be one of %v, got %d: %w", AllowedTopK, r.TopK, domain.ErrValidation)
}

// WithDefaults fills an empty user id.
func (r Request) WithDefaults() Request {
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
	return r
}
