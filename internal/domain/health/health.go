// Package health models the backend health snapshot.
package health

const (
	// StatusHealthy is reported by a fully operational backend.
	StatusHealthy = "healthy"
	// StatusUnhealthy is reported by a failing backend and used for the degraded snapshot.
	StatusUnhealthy = "unhealthy"
	// ServiceOffline marks a service that could not be reached at all.
	ServiceOffline = "offline"
)

// Services holds per-service status strings as reported by the backend.
type Services struct {
	APIGateway       string `json:"api_gateway"`
	RetrievalService string `json:"retrieval_service"`
}

// Stats holds backend index counters.
type Stats struct {
	IndexedDocuments int `json:"indexed_documents"`
	FAISSVectors     int `json:"faiss_vectors"`
	TotalQueries     int `json:"total_queries"`
}

// SystemHealth is an immutable health snapshot. It is replaced wholesale, never merged.
type SystemHealth struct {
	Status   string   `json:"status"`
	Services Services `json:"services"`
	Stats    Stats    `json:"system_stats"`
}

// Degraded returns the canonical snapshot used when a health poll fails.
func Degraded() SystemHealth {
	return SystemHealth{
		Status: StatusUnhealthy,
		Services: Services{
			APIGateway:       ServiceOffline,
			RetrievalService: ServiceOffline,
		},
	}
}

// IsHealthy reports whether the aggregate status is healthy.
func (h SystemHealth) IsHealthy() bool {
	return h.Status == StatusHealthy
}

// ServiceHealthy reports whether a service status string means healthy.
// Anything else, including an empty string, is treated as unhealthy.
func ServiceHealthy(status string) bool {
	return status == StatusHealthy
}
