package api

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	loginPath   = "/api/auth/login/"
	refreshPath = "/api/auth/refresh-token/"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`

	// User is kept raw; the session stores it verbatim.
	User json.RawMessage `json:"user"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// Login exchanges credentials for a token pair. It is sent without a
// bearer token and a 401 does not trigger a refresh.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.doPublic(ctx, http.MethodPost, loginPath, loginRequest{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
