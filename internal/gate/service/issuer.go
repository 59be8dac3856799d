package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bitshala/guildgate/internal/gate/domain"
	"github.com/bitshala/guildgate/internal/gate/metrics"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/cryptox"
	"github.com/bitshala/guildgate/pkg/idx"
	"github.com/bitshala/guildgate/pkg/slogx"
)

// IssuerService mints single-use invite tokens. A token is valid for
// redemption the moment it is stored, independent of whether its welcome
// email could be delivered.
type IssuerService struct {
	Store         store.Store
	Roles         domain.RoleMap
	Mailer        Mailer
	TokenTTL      time.Duration
	PublicBaseURL string // e.g. https://invites.example.org, no trailing slash
}

// Profile holds the optional registrant details captured at issuance.
type Profile struct {
	Name  string
	Email string
}

// IssueResult is the outcome of an email-integrated issuance.
type IssueResult struct {
	Token      domain.Token
	InviteLink string
	EmailSent  bool
}

// Issue validates the role selector and stores a fresh unused token.
// Unknown selectors are rejected before the store is touched.
func (s *IssuerService) Issue(ctx context.Context, roleKey string, p Profile) (domain.Token, error) {
	log := slogx.FromContext(ctx)

	role, ok := s.Roles.Lookup(roleKey)
	if !ok {
		log.Warn("invite requested for unknown role", slog.String("role_key", roleKey))
		return domain.Token{}, ErrUnknownRole
	}

	value, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return domain.Token{}, fmt.Errorf("generate token: %w", err)
	}

	token := domain.Token{
		ID:        idx.New().String(),
		Value:     value,
		RoleKey:   role.Key,
		Email:     p.Email,
		Name:      p.Name,
		ExpiresAt: time.Now().UTC().Add(s.ttl()),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Tokens().CreateToken(ctx, token)
	})
	if err != nil {
		log.Error("failed to store invite token",
			slog.String("role_key", role.Key),
			slog.Any("error", err),
		)
		return domain.Token{}, err
	}

	metrics.InvitesIssued.WithLabelValues(role.Key).Inc()
	log.Debug("invite token issued",
		slog.String("token_id", token.ID),
		slog.String("role_key", role.Key),
		slog.Time("expires_at", token.ExpiresAt),
	)

	return token, nil
}

// IssueWithEmail issues a token for the registrant and dispatches the invite
// link by email. Dispatch failure never reverses or blocks issuance; it is
// recorded on the token's email_sent flag and reflected in the result.
func (s *IssuerService) IssueWithEmail(ctx context.Context, name, email, roleKey string) (IssueResult, error) {
	log := slogx.FromContext(ctx)

	token, err := s.Issue(ctx, roleKey, Profile{Name: name, Email: email})
	if err != nil {
		return IssueResult{}, err
	}

	role := s.Roles[token.RoleKey]
	link := s.InviteLink(token)

	sendErr := s.Mailer.Send(ctx, Invitation{
		Name:       name,
		Email:      email,
		CohortName: role.DisplayName,
		InviteURL:  link,
	})
	sent := sendErr == nil
	if sendErr != nil {
		metrics.InviteEmails.WithLabelValues("failed").Inc()
		log.Error("failed to send invite email",
			slog.String("token_id", token.ID),
			slog.Any("error", sendErr),
		)
	} else {
		metrics.InviteEmails.WithLabelValues("sent").Inc()
		log.Info("invite email sent",
			slog.String("token_id", token.ID),
			slog.String("role_key", token.RoleKey),
		)
	}

	if err := s.Store.Tokens().MarkEmailSent(ctx, token.Value, sent); err != nil {
		// The flag is advisory; the token is already valid either way.
		log.Warn("failed to record email dispatch status",
			slog.String("token_id", token.ID),
			slog.Any("error", err),
		)
	}
	token.EmailSent = sent

	return IssueResult{Token: token, InviteLink: link, EmailSent: sent}, nil
}

// ResolveToken returns the stored record for a token value carried in an
// email link, so the invite redirect can reuse it instead of minting a
// second one.
func (s *IssuerService) ResolveToken(ctx context.Context, value string) (domain.Token, error) {
	return s.Store.Tokens().GetTokenByValue(ctx, value)
}

// InviteLink builds the public redemption URL embedding the token value.
func (s *IssuerService) InviteLink(t domain.Token) string {
	return fmt.Sprintf("%s/invite/%s?token=%s",
		strings.TrimRight(s.PublicBaseURL, "/"), t.RoleKey, t.Value)
}

func (s *IssuerService) ttl() time.Duration {
	if s.TokenTTL <= 0 {
		return time.Hour
	}
	return s.TokenTTL
}
