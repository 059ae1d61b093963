package client

import (
	"context"
	"net/http"

	"github.com/taskboard/taskboard-server/internal/dto"
)

// Session is the result of Register and Login.
type Session struct {
	User  *dto.User `json:"user"`
	Token string    `json:"token"`
}

// Register creates an account and stores the issued token on the client.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	var out Session
	_, err := call(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   map[string]string{"name": name, "email": email, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	_, err := call(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*dto.User, error) {
	var out dto.User
	if _, err := call(ctx, c, request{method: http.MethodGet, path: "/api/auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health is the server health report.
type Health struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

// Health checks the server without authentication.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if _, err := call(ctx, c, request{method: http.MethodGet, path: "/api/health"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
