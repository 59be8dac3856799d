package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bitshala/guildgate/internal/gate/domain"
	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/internal/gate/store/drivers/sqlite"
	"github.com/bitshala/guildgate/pkg/cryptox"
	"github.com/bitshala/guildgate/pkg/idx"
	"github.com/stretchr/testify/require"
)

const completionURL = "https://discord.gg/permanent-invite"

type fakeProvider struct {
	calls []string

	exchangeErr error
	identityErr error
	joinErr     error
	grantErr    error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://discord.example/oauth2/authorize?client_id=app&state=" + url.QueryEscape(state)
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	p.calls = append(p.calls, "exchange")
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return "access-token", nil
}

func (p *fakeProvider) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	p.calls = append(p.calls, "identity")
	if p.identityErr != nil {
		return "", p.identityErr
	}
	return "user-42", nil
}

func (p *fakeProvider) JoinGuild(ctx context.Context, userID, accessToken string) error {
	p.calls = append(p.calls, "join")
	return p.joinErr
}

func (p *fakeProvider) GrantRole(ctx context.Context, userID, roleID string) error {
	p.calls = append(p.calls, "grant")
	return p.grantErr
}

type fakeMailer struct {
	sent []service.Invitation
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, inv service.Invitation) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, inv)
	return nil
}

type testEnv struct {
	router   *Router
	store    store.Store
	provider *fakeProvider
	mailer   *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	roles := domain.RoleMap{
		"pb": {Key: "pb", DiscordID: "111111111111111111", DisplayName: "Programming Bitcoin"},
		"mb": {Key: "mb", DiscordID: "222222222222222222", DisplayName: "Mastering Bitcoin"},
	}

	provider := &fakeProvider{}
	mailer := &fakeMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	issuer := &service.IssuerService{
		Store:         st,
		Roles:         roles,
		Mailer:        mailer,
		TokenTTL:      time.Hour,
		PublicBaseURL: "https://invites.example.org",
	}
	redemption := &service.RedemptionService{Store: st, Provider: provider, Roles: roles}
	housekeeping := service.NewHousekeepingService(st, logger, time.Hour)

	router := NewRouter("test", st, logger)
	router.IssuerService = issuer
	router.RedemptionService = redemption
	router.HousekeepingService = housekeeping
	router.Provider = provider
	router.CompletionURL = completionURL
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, provider: provider, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// stateFromRedirect pulls the opaque state parameter out of the consent
// redirect issued by GET /invite/{role}.
func stateFromRedirect(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestInviteRedirectFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/invite/pb", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	state := stateFromRedirect(t, rec)

	// The state parameter is a stored, unused token for the chosen role.
	token, err := env.store.Tokens().GetTokenByValue(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, "pb", token.RoleKey)
	require.False(t, token.Used)

	// Callback with code and state finishes the grant and lands the user
	// on the completion URL.
	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, completionURL, rec.Header().Get("Location"))
	require.Equal(t, []string{"exchange", "identity", "join", "grant"}, env.provider.calls)

	token, err = env.store.Tokens().GetTokenByValue(context.Background(), state)
	require.NoError(t, err)
	require.True(t, token.Used)
}

func TestInviteUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/invite/unknown", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid role selector", rec.Body.String())
}

func TestCallbackRejectsReusedLink(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/invite/pb", nil)
	state := stateFromRedirect(t, rec)

	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	// Replaying the same link is rejected without another pipeline run.
	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+state, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid, expired, or already-used link", rec.Body.String())
	require.Equal(t, []string{"exchange", "identity", "join", "grant"}, env.provider.calls)
}

func TestCallbackMissingState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/bot/callback?code=auth-code", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, env.provider.calls)
}

func TestCallbackUnknownState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state=garbage", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid, expired, or already-used link", rec.Body.String())
	require.Empty(t, env.provider.calls)
}

func TestCallbackExchangeFailureBurnsToken(t *testing.T) {
	env := newTestEnv(t)
	env.provider.exchangeErr = errors.New("invalid_grant")

	rec := env.do(t, http.MethodGet, "/invite/pb", nil)
	state := stateFromRedirect(t, rec)

	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+state, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Token exchange failed", rec.Body.String())

	// The token was consumed by validation; a retry is a plain rejection.
	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+state, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid, expired, or already-used link", rec.Body.String())
}

func TestCallbackGrantFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.provider.grantErr = errors.New("50013 missing permissions")

	rec := env.do(t, http.MethodGet, "/invite/pb", nil)
	state := stateFromRedirect(t, rec)

	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+state, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegisterIssuesTokenAndSendsEmail(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"name":"Alice","email":"alice@example.org","role":"pb"}`)
	rec := env.do(t, http.MethodPost, "/bot/invite", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "SENT", resp.Status)
	require.NotEmpty(t, resp.Token)
	require.Contains(t, resp.InviteLink, "/invite/pb?token="+resp.Token)

	require.Len(t, env.mailer.sent, 1)
	require.Equal(t, "Programming Bitcoin", env.mailer.sent[0].CohortName)

	// The emailed link reuses the issued token rather than minting a second
	// one, so the email and the consent redirect share one credential.
	rec = env.do(t, http.MethodGet, "/invite/pb?token="+resp.Token, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, resp.Token, stateFromRedirect(t, rec))

	// And the full redemption completes from there.
	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+resp.Token, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, completionURL, rec.Header().Get("Location"))
}

func TestRegisterEmailFailureStillCreatesToken(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("sendgrid: 503")

	body := bytes.NewBufferString(`{"name":"Bob","email":"bob@example.org","role":"mb"}`)
	rec := env.do(t, http.MethodPost, "/bot/invite", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "EMAIL_FAILED", resp.Status)
	require.NotEmpty(t, resp.Token)

	// The token is redeemable despite the failed dispatch.
	rec = env.do(t, http.MethodGet, "/bot/callback?code=auth-code&state="+resp.Token, nil)
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("malformed JSON", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/bot/invite", strings.NewReader("{not json"))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "ERROR", resp.Status)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/bot/invite", strings.NewReader(`{"name":"Alice"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Missing required fields: name, email, role", resp.Error)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/bot/invite",
			strings.NewReader(`{"name":"Alice","email":"alice@example.org","role":"nope"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Invalid role: nope", resp.Error)

		// The rejected request must not have minted anything.
		listed, err := env.store.Tokens().ListRecentTokens(context.Background(), 10)
		require.NoError(t, err)
		require.Empty(t, listed)
	})
}

func TestCleanupRemovesExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired := domain.Token{
		ID:        idx.New().String(),
		Value:     cryptox.MustGenerateToken(cryptox.TokenSize128),
		RoleKey:   "pb",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, env.store.Tokens().CreateToken(ctx, expired))

	rec := env.do(t, http.MethodGet, "/cleanup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Expired tokens cleaned up successfully", rec.Body.String())

	_, err := env.store.Tokens().GetTokenByValue(ctx, expired.Value)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
}

func TestAdminTokensWithholdsValues(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"name":"Alice","email":"alice@example.org","role":"pb"}`)
	rec := env.do(t, http.MethodPost, "/bot/invite", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var issued RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	rec = env.do(t, http.MethodGet, "/admin/tokens", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing TokenListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Tokens, 1)
	require.Equal(t, "pb", listing.Tokens[0].RoleKey)
	require.Equal(t, "alice@example.org", listing.Tokens[0].Email)

	// The raw token value never appears in the listing.
	require.NotContains(t, rec.Body.String(), issued.Token)
}
