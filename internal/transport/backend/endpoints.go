package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kailas-cloud/ragdesk/internal/domain/docstatus"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	"github.com/kailas-cloud/ragdesk/internal/domain/query"
	"github.com/kailas-cloud/ragdesk/internal/domain/upload"
)

// Health fetches the system health snapshot.
func (c *Client) Health(ctx context.Context) (health.SystemHealth, error) {
	body, err := c.do(ctx, http.MethodGet, PathHealth, c.http.R())
	if err != nil {
		return health.SystemHealth{}, err
	}

	var h health.SystemHealth
	if err := json.Unmarshal(body, &h); err != nil {
		return health.SystemHealth{}, decodeFailed(PathHealth, err)
	}
	if h.Status == "" {
		return health.SystemHealth{}, decodeFailed(PathHealth, errors.New("missing status"))
	}
	return h, nil
}

// DocumentStatus fetches the per-document ingestion status map.
func (c *Client) DocumentStatus(ctx context.Context) (docstatus.Map, error) {
	body, err := c.do(ctx, http.MethodGet, PathDocumentStatus, c.http.R())
	if err != nil {
		return nil, err
	}

	var m docstatus.Map
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, decodeFailed(PathDocumentStatus, err)
	}
	if m == nil {
		m = docstatus.Map{}
	}
	return m, nil
}

// QueryLLM posts to the grounded-answer endpoint and returns the raw body.
// Decoding is left to the result normalizer.
func (c *Client) QueryLLM(ctx context.Context, req query.Request) ([]byte, error) {
	return c.do(ctx, http.MethodPost, PathQueryLLM, c.http.R().SetBody(req))
}

// QueryRetrieval posts to the retrieval-only endpoint and returns the raw body.
func (c *Client) QueryRetrieval(ctx context.Context, req query.Request) ([]byte, error) {
	return c.do(ctx, http.MethodPost, PathQuery, c.http.R().SetBody(req))
}

// IngestText submits text content with its metadata as JSON.
func (c *Client) IngestText(ctx context.Context, req upload.TextRequest) (upload.Ack, error) {
	body, err := c.do(ctx, http.MethodPost, PathDocuments, c.http.R().SetBody(req))
	if err != nil {
		return upload.Ack{}, err
	}
	return decodeIngest(PathDocuments, body)
}

// IngestFile submits a file as multipart form data: file, title and optional author/source.
func (c *Client) IngestFile(ctx context.Context, req upload.FileRequest) (upload.Ack, error) {
	form := map[string]string{"title": req.Metadata.Title}
	if req.Metadata.Author != "" {
		form["author"] = req.Metadata.Author
	}
	if req.Metadata.Source != "" {
		form["source"] = req.Metadata.Source
	}

	r := c.http.R().
		SetMultipartField("file", req.Filename, detectContentType(req.Data), bytes.NewReader(req.Data)).
		SetMultipartFormData(form)

	body, err := c.do(ctx, http.MethodPost, PathUploadFile, r)
	if err != nil {
		return upload.Ack{}, err
	}
	return decodeIngest(PathUploadFile, body)
}

func decodeIngest(path string, body []byte) (upload.Ack, error) {
	var resp upload.Ack
	if err := json.Unmarshal(body, &resp); err != nil {
		return upload.Ack{}, decodeFailed(path, err)
	}
	return resp, nil
}

func detectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}
