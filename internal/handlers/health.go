package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything whose reachability /health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	Search string `json:"search"`
}

// Health reports the record store and search index separately. Only a dead
// record store makes the service unhealthy; search degrades to
// "unavailable". search is nil when the index is not configured.
func Health(store, search Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", Search: "disabled"}
		if search != nil {
			resp.Search = "ok"
			if err := search.Ping(ctx); err != nil {
				resp.Search = "unavailable"
			}
		}
		status := http.StatusOK
		if err := store.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, resp)
	}
}
