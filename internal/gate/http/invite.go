package http

import (
	"errors"
	"net/http"

	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/httpx"
	"github.com/bitshala/guildgate/pkg/slogx"
)

// InviteHandler serves GET /invite/{role}: mint (or accept) a token and
// redirect the browser to the provider consent screen with the token as the
// opaque state parameter.
type InviteHandler struct {
	IssuerService *service.IssuerService
	Provider      service.Provider
}

func (h *InviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	roleKey := r.PathValue("role")

	// A token arriving via the email link is reused so the emailed link and
	// the consent redirect consume the same single-use credential. Anything
	// unusable falls back to minting fresh.
	value := ""
	if provided := r.URL.Query().Get("token"); provided != "" {
		t, err := h.IssuerService.ResolveToken(ctx, provided)
		switch {
		case err == nil && !t.Used && t.RoleKey == roleKey:
			value = t.Value
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Error("failed to resolve provided token", "err", err)
			httpx.WriteText(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	if value == "" {
		token, err := h.IssuerService.Issue(ctx, roleKey, service.Profile{})
		if err != nil {
			if errors.Is(err, service.ErrUnknownRole) {
				httpx.WriteText(w, http.StatusBadRequest, "Invalid role selector")
				return
			}
			log.Error("failed to issue invite token", "err", err)
			httpx.WriteText(w, http.StatusInternalServerError, "Internal error")
			return
		}
		value = token.Value
	}

	http.Redirect(w, r, h.Provider.AuthCodeURL(value), http.StatusFound)
}
