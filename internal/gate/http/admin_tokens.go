package http

import (
	"net/http"

	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/httpx"
	"github.com/bitshala/guildgate/pkg/slogx"
)

// AdminTokensHandler serves GET /admin/tokens: a bounded, newest-first
// listing of issuance records for debugging.
type AdminTokensHandler struct {
	Store    store.Store
	PageSize int
}

func (h *AdminTokensHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit := h.PageSize
	if limit <= 0 {
		limit = 50
	}

	tokens, err := h.Store.Tokens().ListRecentTokens(ctx, limit)
	if err != nil {
		log.Error("failed to list tokens", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to list tokens",
			Status: "ERROR",
		})
		return
	}

	out := TokenListResponse{Tokens: make([]TokenSummary, 0, len(tokens))}
	for _, t := range tokens {
		out.Tokens = append(out.Tokens, TokenSummary{
			ID:        t.ID,
			RoleKey:   t.RoleKey,
			Email:     t.Email,
			Name:      t.Name,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
			Used:      t.Used,
			EmailSent: t.EmailSent,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}
