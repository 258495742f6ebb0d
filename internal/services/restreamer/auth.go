package restreamer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"polyemesis/internal/logging"
	"polyemesis/internal/services"
)

const (
	loginPath       = "/api/login"
	refreshPath     = "/api/v3/refresh"
	defaultTokenTTL = time.Hour
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Login posts the configured credentials to the login endpoint and stores the
// returned token pair. Missing credentials or a response without an access
// token fail with an authentication error.
func (c *Client) Login(ctx context.Context) error {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if c.conn.Username == "" || c.conn.Password == "" {
		return services.Wrap(services.ErrAuth, component, "login", "username and password required", nil)
	}

	payload, err := json.Marshal(map[string]string{
		"username": c.conn.Username,
		"password": c.conn.Password,
	})
	if err != nil {
		return services.Wrap(services.ErrParse, component, "login", "encode credentials", err)
	}

	data, err := c.send(ctx, http.MethodPost, loginPath, "application/json", "", bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrAuth, component, "login", "", err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return services.Wrap(services.ErrParse, component, "login", "decode response", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return services.Wrap(services.ErrAuth, component, "login", "no access token in response", nil)
	}

	c.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		c.refreshToken = resp.RefreshToken
	}
	c.tokenExpires = expiryTime(resp.ExpiresAt)

	c.logger.Debug("logged in to media server", logging.String("host", c.conn.Host))
	return nil
}

// ensureToken returns a valid access token, performing at most one login
// attempt when no token is held or the current one has expired. A failed
// login fails the enclosing call; there is no further retry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpires) {
		return c.accessToken, nil
	}
	if err := c.loginLocked(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// Refresh renews the access token using the held refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.refreshToken == "" {
		return services.Wrap(services.ErrAuth, component, "refresh", "no refresh token available", nil)
	}

	data, err := c.send(ctx, http.MethodPost, refreshPath, "application/json", c.refreshToken, nil)
	if err != nil {
		return services.Wrap(services.ErrAuth, component, "refresh", "", err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return services.Wrap(services.ErrParse, component, "refresh", "decode response", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return services.Wrap(services.ErrAuth, component, "refresh", "no access token in response", nil)
	}

	c.accessToken = resp.AccessToken
	c.tokenExpires = expiryTime(resp.ExpiresAt)
	return nil
}

// ForceLogin discards held tokens and performs a fresh login.
func (c *Client) ForceLogin(ctx context.Context) error {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	c.accessToken = ""
	c.refreshToken = ""
	c.tokenExpires = time.Time{}
	return c.loginLocked(ctx)
}

// IsConnected reports whether an access token is held.
func (c *Client) IsConnected() bool {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.accessToken != ""
}

// TestConnection validates the configured credentials by logging in.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.Login(ctx)
}

func expiryTime(expiresAt int64) time.Time {
	if expiresAt > 0 {
		return time.Unix(expiresAt, 0)
	}
	return time.Now().Add(defaultTokenTTL)
}
