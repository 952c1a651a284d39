// Package discord links treasury accounts to Discord identities through the
// OAuth2 authorization code flow.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://discord.com"

// ErrNotConfigured is returned when no client credentials were provided.
var ErrNotConfigured = errors.New("discord oauth is not configured")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// BaseURL overrides https://discord.com.
	BaseURL string
}

// Account is the Discord identity behind an access token.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Client struct {
	oauth   *oauth2.Config
	baseURL string
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		baseURL: base,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/api/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// Exchange trades an authorization code for the account that granted it.
func (c *Client) Exchange(ctx context.Context, code string) (*Account, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch account: unexpected status %d", resp.StatusCode)
	}

	var acc Account
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}

	if acc.ID == "" {
		return nil, errors.New("decode account: missing id")
	}

	return &acc, nil
}
