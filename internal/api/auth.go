package api

import (
	"context"

	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/validation"
)

func (c *Client) Me(ctx context.Context) (*readmodel.User, error) {
	var user readmodel.User
	if err := c.get(ctx, "auth.me", "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*readmodel.AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var resp readmodel.AuthResponse
	if err := c.post(ctx, "auth.login", "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*readmodel.AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var resp readmodel.AuthResponse
	if err := c.post(ctx, "auth.register", "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "auth.logout", "/auth/logout", nil, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*readmodel.MessageResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var resp readmodel.MessageResponse
	if err := c.post(ctx, "auth.forgot_password", "/auth/password/forgot", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) (*readmodel.MessageResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var resp readmodel.MessageResponse
	if err := c.put(ctx, "auth.reset_password", "/auth/password/reset/"+escape(token), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdatePassword(ctx context.Context, req UpdatePasswordRequest) (*readmodel.MessageResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var resp readmodel.MessageResponse
	if err := c.put(ctx, "auth.update_password", "/auth/password/update", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req ProfileRequest) (*readmodel.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var user readmodel.User
	if err := c.put(ctx, "users.update_profile", "/users/profile", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
