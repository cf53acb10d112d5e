package ragdesk

import (
	"github.com/kailas-cloud/ragdesk/internal/domain/docstatus"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	"github.com/kailas-cloud/ragdesk/internal/domain/query"
	"github.com/kailas-cloud/ragdesk/internal/domain/upload"
	"github.com/kailas-cloud/ragdesk/internal/state"
)

// Query types.
type (
	QueryRequest = query.Request
	Result       = query.Result
	ResultKind   = query.Kind
	Success      = query.Success
	Gated        = query.Gated
	Failure      = query.Failure
	Chunk        = query.Chunk
	ChunkMeta    = query.Metadata
)

// Result kinds.
const (
	KindSuccess = query.KindSuccess
	KindGated   = query.KindGated
	KindFailure = query.KindFailure
)

// Upload types.
type (
	UploadMetadata = upload.Metadata
	TextUpload     = upload.TextRequest
	FileUpload     = upload.FileRequest
	UploadOutcome  = upload.Outcome
)

// State types.
type (
	Snapshot       = state.Snapshot
	SystemHealth   = health.SystemHealth
	DocumentStatus = docstatus.Map
	DocumentEntry  = docstatus.Entry
)

// AllowedTopK lists the accepted QueryRequest.TopK values.
var AllowedTopK = query.AllowedTopK

// AllowedExtensions lists the file types accepted by UploadFile.
var AllowedExtensions = upload.AllowedExtensions

// SuggestTitle derives a default upload title from a filename.
func SuggestTitle(filename string) string {
	return upload.SuggestTitle(filename)
}
