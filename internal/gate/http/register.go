package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/pkg/httpx"
	"github.com/bitshala/guildgate/pkg/slogx"
)

// RegisterHandler serves POST /bot/invite: programmatic issuance with email
// dispatch, used by the registration frontend.
type RegisterHandler struct {
	IssuerService *service.IssuerService
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid JSON payload",
			Status: "ERROR",
		})
		return
	}

	if req.Name == "" || req.Email == "" || req.Role == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Missing required fields: name, email, role",
			Status: "ERROR",
		})
		return
	}

	result, err := h.IssuerService.IssueWithEmail(ctx, req.Name, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrUnknownRole) {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:  fmt.Sprintf("Invalid role: %s", req.Role),
				Status: "ERROR",
			})
			return
		}
		log.Error("failed to issue invite", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to create invite",
			Status: "ERROR",
		})
		return
	}

	if !result.EmailSent {
		// The token survives a failed dispatch; the caller gets the link
		// and can retry delivery out of band.
		httpx.WriteJSON(w, http.StatusInternalServerError, RegisterResponse{
			InviteLink: result.InviteLink,
			Status:     "EMAIL_FAILED",
			Message:    "Failed to send email, but token created",
			Token:      result.Token.Value,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RegisterResponse{
		InviteLink: result.InviteLink,
		Status:     "SENT",
		Message:    "Email sent successfully",
		Token:      result.Token.Value,
	})
}
