package http

import (
	"net/http"

	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/pkg/httpx"
	"github.com/bitshala/guildgate/pkg/slogx"
)

// CleanupHandler serves GET /cleanup: a manual trigger for the expired-token
// purge normally run by the housekeeping worker.
type CleanupHandler struct {
	Housekeeping *service.HousekeepingService
}

func (h *CleanupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, err := h.Housekeeping.PurgeExpired(ctx); err != nil {
		log.Error("manual cleanup failed", "err", err)
		httpx.WriteText(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}

	httpx.WriteText(w, http.StatusOK, "Expired tokens cleaned up successfully")
}
