package apiclient

import (
	"context"

	"github.com/avelichko/couriertrack/internal/model"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
}

// LoginResult is the login response: the account plus its token pair.
type LoginResult struct {
	User   model.User      `json:"user"`
	Tokens model.TokenPair `json:"tokens"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	var user model.User
	if err := c.post(ctx, "/api/auth/register", req, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login authenticates and stores the issued access token on the client, so
// subsequent calls carry it automatically.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var result LoginResult
	if err := c.post(ctx, "/api/auth/login", req, &result); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(result.Tokens.AccessToken)
	return result, nil
}

// Refresh exchanges a refresh token for a fresh pair and stores the new
// access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	req := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var pair model.TokenPair
	if err := c.post(ctx, "/api/auth/refresh", req, &pair); err != nil {
		return model.TokenPair{}, err
	}
	c.SetToken(pair.AccessToken)
	return pair, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var user model.User
	if err := c.get(ctx, "/api/users/me", nil, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}
