package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zohaib/garage/pkg/domain"
)

// Auth endpoint paths.
const (
	PathTokenCreate  = "/auth/jwt/create/"
	PathTokenRefresh = "/auth/jwt/refresh/"
	PathUserMe       = "/auth/users/me/"
)

// Login exchanges credentials for a token pair. It bypasses Send: no stored
// token is attached and a 401 is never refreshed.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	resp, err := c.do(ctx, &Request{
		Method: http.MethodPost,
		Path:   PathTokenCreate,
		Body:   domain.Credentials{Username: username, Password: password},
	}, "")
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	var pair domain.TokenPair
	if err := resp.Decode(&pair); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if pair.Access == "" {
		return nil, errors.New("client.Login: response has no access token")
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new access token. Like Login it
// goes through the raw transport so an expired access token is never sent.
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	resp, err := c.do(ctx, &Request{
		Method: http.MethodPost,
		Path:   PathTokenRefresh,
		Body:   map[string]string{"refresh": refresh},
	}, "")
	if err != nil {
		return "", fmt.Errorf("client.Refresh: %w", err)
	}
	var out struct {
		Access string `json:"access"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("client.Refresh: %w", err)
	}
	if out.Access == "" {
		return "", errors.New("client.Refresh: response has no access token")
	}
	return out.Access, nil
}

// GetUserInfo fetches the profile for the given access token. The token is
// passed explicitly; a 401 here is returned without a refresh attempt.
func (c *Client) GetUserInfo(ctx context.Context, token string) (*domain.User, error) {
	resp, err := c.do(ctx, &Request{Method: http.MethodGet, Path: PathUserMe}, token)
	if err != nil {
		return nil, fmt.Errorf("client.GetUserInfo: %w", err)
	}
	var u domain.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("client.GetUserInfo: %w", err)
	}
	return &u, nil
}
