package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/workflow/internal/remote"
	"github.com/benvon/workflow/internal/store"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	kv     store.KV
	remote remote.Adapter
}

// NewHealthChecker creates a new health checker. remote may be nil.
func NewHealthChecker(kv store.KV, rem remote.Adapter) *HealthChecker {
	return &HealthChecker{kv: kv, remote: rem}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. ?mode=extended also pings the
// local store and reports the remote session; only the store affects the status.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		checks := make(map[string]string)

		if err := h.checkStore(r.Context()); err != nil {
			response.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = "unhealthy: " + sanitizeErrorMessage(err.Error())
		} else {
			checks["store"] = "healthy"
		}

		if h.remote != nil {
			checks["remote"] = remoteState(h.remote)
		}
		response.Checks = checks
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func remoteState(a remote.Adapter) string {
	switch {
	case !a.Ready():
		return a.Name() + ": not configured"
	case !a.SignedIn():
		return a.Name() + ": signed out"
	default:
		return a.Name() + ": ready"
	}
}

// checkStore verifies the local store is reachable
func (h *HealthChecker) checkStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return h.kv.Ping(ctx)
}
