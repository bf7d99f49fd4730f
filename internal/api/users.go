package api

import (
	"context"

	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/validation"
)

func (c *Client) AdminUsers(ctx context.Context, page, limit int) (*readmodel.UserList, error) {
	var list readmodel.UserList
	if err := c.get(ctx, "users.admin_list", "/users/admin/users", pageQuery(page, limit), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) AdminGetUser(ctx context.Context, id string) (*readmodel.User, error) {
	var user readmodel.User
	if err := c.get(ctx, "users.admin_get", "/users/admin/user/"+escape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, update UserUpdate) (*readmodel.User, error) {
	if err := validation.Struct(update); err != nil {
		return nil, err
	}
	var user readmodel.User
	if err := c.put(ctx, "users.update", "/users/admin/user/"+escape(id), update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) (*readmodel.MessageResponse, error) {
	var resp readmodel.MessageResponse
	if err := c.delete(ctx, "users.delete", "/users/admin/user/"+escape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
