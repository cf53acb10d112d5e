package ragdesk

import "github.com/kailas-cloud/ragdesk/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrTransport  = domain.ErrTransport
	ErrHTTPStatus = domain.ErrHTTPStatus
	ErrTimeout    = domain.ErrTimeout
	ErrDecode     = domain.ErrDecode
	ErrValidation = domain.ErrValidation
	ErrBusy       = domain.ErrBusy
)

// HTTPStatusError carries the status code of a non-2xx backend response.
// Use errors.As() to extract it.
type HTTPStatusError = domain.HTTPStatusError
