package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Documents string `json:"documents"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by the vector store via its Health method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Pinger is implemented by the document store via its Ping method.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler creates the /health endpoint handler. It probes the
// vector store and the document store and maps the result to 200/503.
func NewHealthHandler(index HealthChecker, docs Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Qdrant:    "connected",
			Documents: "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if err := index.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
		}
		if err := docs.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			response.Documents = "disconnected"
		}

		w.Header().Set("Content-Type", "application/json")
		if response.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(response)
	}
}
