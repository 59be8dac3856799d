package http

import "time"

// ErrorResponse is the stable JSON error shape for API endpoints.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// RegisterRequest is the body of POST /bot/invite.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RegisterResponse reports issuance plus email dispatch outcome. The token
// is valid for redemption regardless of Status.
type RegisterResponse struct {
	InviteLink string `json:"invite_link"`
	Status     string `json:"status"` // "SENT" or "EMAIL_FAILED"
	Message    string `json:"message"`
	Token      string `json:"token"`
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status string `json:"status"`
}

// TokenSummary is one row of the admin listing. The raw token value is
// withheld; the listing exists for debugging issuance, not for redeeming.
type TokenSummary struct {
	ID        string    `json:"id"`
	RoleKey   string    `json:"role_key"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	EmailSent bool      `json:"email_sent"`
}

// TokenListResponse is the body of GET /admin/tokens.
type TokenListResponse struct {
	Tokens []TokenSummary `json:"tokens"`
}
