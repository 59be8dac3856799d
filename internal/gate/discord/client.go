// Package discord implements the identity-provider boundary against the
// Discord OAuth2 and guild REST APIs.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultAuthorizeURL is Discord's user consent screen.
	DefaultAuthorizeURL = "https://discord.com/oauth2/authorize"
	// DefaultAPIBaseURL is the Discord REST API root.
	DefaultAPIBaseURL = "https://discord.com/api"
)

// Config holds the OAuth application credentials and guild target.
// AuthorizeURL and APIBaseURL exist so tests can point the client at a local
// fake; leave them empty in production.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BotToken     string
	GuildID      string

	AuthorizeURL string
	APIBaseURL   string
	HTTPClient   *http.Client
}

// Client talks to Discord. It implements service.Provider.
type Client struct {
	oauth    oauth2.Config
	botToken string
	guildID  string
	baseURL  string
	http     *http.Client
}

func NewClient(cfg Config) *Client {
	authorizeURL := cfg.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify", "guilds.join"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  baseURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		botToken: cfg.BotToken,
		guildID:  cfg.GuildID,
		baseURL:  baseURL,
		http:     httpClient,
	}
}

// AuthCodeURL builds the consent URL with the invite token as opaque state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode swaps the authorization code for a bearer access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok.AccessToken, nil
}

// FetchIdentity resolves the Discord user id behind an access token.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/@me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("fetch identity", resp)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}
	return user.ID, nil
}

// JoinGuild adds the user to the configured guild using their access token.
// Discord returns 201 for a fresh join and 204 when the user is already a
// member; both count as success.
func (c *Client) JoinGuild(ctx context.Context, userID, accessToken string) error {
	body, err := json.Marshal(map[string]string{"access_token": accessToken})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/guilds/%s/members/%s", c.baseURL, c.guildID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.botAuth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("join guild: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return apiError("join guild", resp)
	}
	return nil
}

// GrantRole attaches the role to the guild member.
func (c *Client) GrantRole(ctx context.Context, userID, roleID string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s", c.baseURL, c.guildID, userID, roleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return err
	}
	c.botAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError("grant role", resp)
	}
	return nil
}

func (c *Client) botAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bot "+c.botToken)
}

func apiError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: discord api returned %d: %s", op, resp.StatusCode, bytes.TrimSpace(snippet))
}
