package client

import (
	"context"
	"net/http"
)

// Register creates a customer account and keeps its token for later calls.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	return c.authenticate(ctx, "/users/register", in)
}

// Login keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/users/login", LoginInput{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, in interface{}) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, request{method: http.MethodPost, path: path, body: in}, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Logout forgets the token.
func (c *Client) Logout() {
	c.SetToken("")
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/profile"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*User, error) {
	var user User
	if err := c.do(ctx, request{method: http.MethodPut, path: "/users/profile", body: in}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context, page int) (*UserPage, error) {
	var res UserPage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users", query: pageQuery(page)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/" + id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, in AdminUserUpdate) (*User, error) {
	var user User
	if err := c.do(ctx, request{method: http.MethodPut, path: "/users/" + id, body: in}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/users/" + id}, nil)
}
