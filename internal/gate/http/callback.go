package http

import (
	"errors"
	"net/http"

	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/pkg/httpx"
	"github.com/bitshala/guildgate/pkg/slogx"
)

// CallbackHandler serves the provider redirect target. The query carries the
// authorization code and the invite token as state; a successful pipeline
// run ends in a redirect to the configured completion URL.
type CallbackHandler struct {
	RedemptionService *service.RedemptionService
	CompletionURL     string
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if state == "" {
		httpx.WriteText(w, http.StatusBadRequest, "Invalid, expired, or already-used link")
		return
	}

	err := h.RedemptionService.Redeem(ctx, code, state)
	if err == nil {
		http.Redirect(w, r, h.CompletionURL, http.StatusFound)
		return
	}

	if errors.Is(err, service.ErrTokenNotRedeemable) {
		httpx.WriteText(w, http.StatusBadRequest, "Invalid, expired, or already-used link")
		return
	}

	var perr *service.PipelineError
	if errors.As(err, &perr) {
		switch perr.Stage {
		case service.StageExchange:
			httpx.WriteText(w, http.StatusBadRequest, "Token exchange failed")
		case service.StageIdentity:
			httpx.WriteText(w, http.StatusBadGateway, "Could not resolve your account, please request a new invite")
		case service.StageGrant:
			httpx.WriteText(w, http.StatusBadGateway, "Could not assign your role, please request a new invite")
		default: // StageValidate: the store itself failed
			httpx.WriteText(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	log.Error("unexpected redemption error", "err", err)
	httpx.WriteText(w, http.StatusInternalServerError, "Internal error")
}
