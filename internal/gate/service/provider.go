package service

import "context"

// Provider is the identity-provider boundary the redemption pipeline calls
// in sequence. The production implementation lives in internal/gate/discord;
// tests substitute fakes.
type Provider interface {
	// AuthCodeURL builds the consent-screen URL carrying the invite token
	// as the opaque state parameter.
	AuthCodeURL(state string) string

	// ExchangeCode swaps an authorization code for a bearer access token.
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchIdentity resolves the external user id for an access token.
	FetchIdentity(ctx context.Context, accessToken string) (string, error)

	// JoinGuild adds the user to the target guild. Idempotent when the user
	// is already a member.
	JoinGuild(ctx context.Context, userID, accessToken string) error

	// GrantRole attaches the given role to the user in the target guild.
	GrantRole(ctx context.Context, userID, roleID string) error
}
