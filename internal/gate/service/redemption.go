package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bitshala/guildgate/internal/gate/domain"
	"github.com/bitshala/guildgate/internal/gate/metrics"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/slogx"
)

var (
	errMissingCode        = errors.New("missing authorization code")
	errEmptyAccessToken   = errors.New("provider returned no access token")
	errEmptyUserID        = errors.New("provider returned no user id")
	errRoleNoLongerMapped = errors.New("role selector no longer mapped")
)

// RedemptionService turns a consumed invite token into a guild membership
// plus role assignment. The three provider calls form a linear pipeline with
// no retry and no compensation: once the token is validated it stays
// consumed, whatever happens downstream. Tokens are cheap to reissue; the
// contract is fail fast and never grant a role without a freshly consumed
// token, not guarantee eventual completion.
type RedemptionService struct {
	Store    store.Store
	Provider Provider
	Roles    domain.RoleMap
}

// Redeem drives a single redemption attempt. The state parameter is the
// invite token value.
//
// Error taxonomy: ErrTokenNotRedeemable for a rejected token (user-visible,
// no external calls made); *PipelineError for everything after, tagged with
// the failing stage.
func (s *RedemptionService) Redeem(ctx context.Context, code, state string) error {
	log := slogx.FromContext(ctx)

	// VALIDATING: atomic validate-and-consume. The losing side of a
	// concurrent race on the same token lands here as ErrNotFound.
	roleKey, err := s.Store.Tokens().RedeemToken(ctx, state)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.Redemptions.WithLabelValues("rejected").Inc()
			log.Warn("redemption rejected: token not redeemable")
			return ErrTokenNotRedeemable
		}
		metrics.Redemptions.WithLabelValues("failed_validating").Inc()
		log.Error("redemption storage failure", slog.Any("error", err))
		return &PipelineError{Stage: StageValidate, Err: err}
	}

	role, ok := s.Roles.Lookup(roleKey)
	if !ok {
		// The role map changed since issuance. The token stays consumed;
		// surface it as a grant-stage failure.
		metrics.Redemptions.WithLabelValues("failed_grant").Inc()
		log.Error("redeemed token maps to unconfigured role", slog.String("role_key", roleKey))
		return &PipelineError{Stage: StageGrant, Err: errRoleNoLongerMapped}
	}

	// The token is burned even when the provider never sent a code back;
	// the user restarts from a fresh invite.
	if code == "" {
		metrics.Redemptions.WithLabelValues("failed_exchange").Inc()
		return &PipelineError{Stage: StageExchange, Err: errMissingCode}
	}

	// EXCHANGING_CODE
	accessToken, err := s.Provider.ExchangeCode(ctx, code)
	if err == nil && accessToken == "" {
		err = errEmptyAccessToken
	}
	if err != nil {
		metrics.Redemptions.WithLabelValues("failed_exchange").Inc()
		log.Error("code exchange failed",
			slog.String("role_key", role.Key),
			slog.Any("error", err),
		)
		return &PipelineError{Stage: StageExchange, Err: err}
	}

	// FETCHING_IDENTITY
	userID, err := s.Provider.FetchIdentity(ctx, accessToken)
	if err == nil && userID == "" {
		err = errEmptyUserID
	}
	if err != nil {
		metrics.Redemptions.WithLabelValues("failed_identity").Inc()
		log.Error("identity lookup failed",
			slog.String("role_key", role.Key),
			slog.Any("error", err),
		)
		return &PipelineError{Stage: StageIdentity, Err: err}
	}

	// GRANTING_ROLE: join then attach. A failed GrantRole after a
	// successful join leaves the user in the guild without a role; there is
	// no compensating leave call.
	if err := s.Provider.JoinGuild(ctx, userID, accessToken); err != nil {
		metrics.Redemptions.WithLabelValues("failed_grant").Inc()
		log.Error("guild join failed",
			slog.String("user_id", userID),
			slog.String("role_key", role.Key),
			slog.Any("error", err),
		)
		return &PipelineError{Stage: StageGrant, Err: err}
	}
	if err := s.Provider.GrantRole(ctx, userID, role.DiscordID); err != nil {
		metrics.Redemptions.WithLabelValues("failed_grant").Inc()
		log.Error("role grant failed",
			slog.String("user_id", userID),
			slog.String("role_key", role.Key),
			slog.String("role_id", role.DiscordID),
			slog.Any("error", err),
		)
		return &PipelineError{Stage: StageGrant, Err: err}
	}

	metrics.Redemptions.WithLabelValues("complete").Inc()
	log.Info("redemption complete",
		slog.String("user_id", userID),
		slog.String("role_key", role.Key),
		slog.String("role_id", role.DiscordID),
	)

	return nil
}
