package healthmon

import (
	"context"

	"github.com/kailas-cloud/ragdesk/internal/domain/health"
)

// Fetcher retrieves the backend health snapshot.
type Fetcher interface {
	Health(ctx context.Context) (health.SystemHealth, error)
}
