package domain

import "time"

// Token is a single-use invite credential. Value is the opaque random hex
// string carried through the OAuth state parameter and email links; it is the
// lookup key for redemption. Used transitions false to true exactly once and
// is never reset.
type Token struct {
	ID        string
	Value     string
	RoleKey   string
	Email     string // optional, captured at issuance for the welcome email
	Name      string // optional
	ExpiresAt time.Time
	Used      bool
	EmailSent bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the token's advisory expiry has passed at now.
// Expiry is enforced only by the cleanup sweep, not at redemption time.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
