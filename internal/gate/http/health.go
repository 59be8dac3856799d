package http

import (
	"net/http"

	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/httpx"
)

// HealthHandler serves GET /health. It reports healthy only when the token
// store answers a ping; every redeem must reach durable storage, so a dead
// database means the service cannot do its one job.
func HealthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
	}
}
