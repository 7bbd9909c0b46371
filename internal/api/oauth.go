package api

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/nhle/adsdash/internal/model"
)

const (
	oauthInstallPath = "/google/oauth/install"
	oauthStatusPath  = "/google/oauth/status"
	oauthTokenPath   = "/google/oauth/token"
)

type installResponse struct {
	AuthURL string `json:"auth_url"`
}

// OAuthExchange is the body sent to complete the Google handshake.
type OAuthExchange struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// OAuthResult is the server's answer to a completed handshake.
type OAuthResult struct {
	Connected bool              `json:"connected"`
	User      *model.GoogleUser `json:"user,omitempty"`

	// Token is echoed by some deployments; only its expiry is used.
	Token *oauth2.Token `json:"token,omitempty"`
}

// OAuthInstall asks the backend for a Google consent URL. redirectURI is
// optional and names the local callback listener.
func (c *Client) OAuthInstall(ctx context.Context, redirectURI string) (string, error) {
	path := oauthInstallPath
	if redirectURI != "" {
		path += "?" + url.Values{"redirect_uri": {redirectURI}}.Encode()
	}
	var out installResponse
	if err := c.Get(ctx, path, &out); err != nil {
		return "", fmt.Errorf("requesting google auth url: %w", err)
	}
	return out.AuthURL, nil
}

// OAuthStatus returns the server's view of the Google connection.
func (c *Client) OAuthStatus(ctx context.Context) (*model.GoogleConnection, error) {
	var out model.GoogleConnection
	if err := c.Get(ctx, oauthStatusPath, &out); err != nil {
		return nil, fmt.Errorf("checking google connection: %w", err)
	}
	return &out, nil
}

// OAuthToken completes the Google handshake with the callback parameters.
func (c *Client) OAuthToken(ctx context.Context, ex OAuthExchange) (*OAuthResult, error) {
	var out OAuthResult
	if err := c.Post(ctx, oauthTokenPath, ex, &out); err != nil {
		return nil, fmt.Errorf("exchanging google code: %w", err)
	}
	return &out, nil
}
