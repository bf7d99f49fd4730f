package api

import (
	"context"

	"github.com/example/skycart/internal/domain/order"
	"github.com/example/skycart/internal/readmodel"
)

func (c *Client) MyOrders(ctx context.Context, page, limit int) (*readmodel.OrderList, error) {
	var list readmodel.OrderList
	if err := c.get(ctx, "orders.mine", "/orders/me", pageQuery(page, limit), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*readmodel.Order, error) {
	var o readmodel.Order
	if err := c.get(ctx, "orders.get", "/orders/"+escape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) CreateOrder(ctx context.Context, draft order.Draft) (*readmodel.Order, error) {
	var o readmodel.Order
	if err := c.post(ctx, "orders.create", "/orders/new", draft, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) CancelOrder(ctx context.Context, id string) (*readmodel.Order, error) {
	var o readmodel.Order
	if err := c.put(ctx, "orders.cancel", "/orders/"+escape(id)+"/cancel", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) AdminOrders(ctx context.Context, page, limit int) (*readmodel.OrderList, error) {
	var list readmodel.OrderList
	if err := c.get(ctx, "orders.admin_list", "/orders/admin/orders", pageQuery(page, limit), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) AdminGetOrder(ctx context.Context, id string) (*readmodel.Order, error) {
	var o readmodel.Order
	if err := c.get(ctx, "orders.admin_get", "/orders/admin/order/"+escape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*readmodel.Order, error) {
	var o readmodel.Order
	if err := c.put(ctx, "orders.update_status", "/orders/admin/order/"+escape(id), StatusUpdate{Status: string(status)}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) SalesStats(ctx context.Context) (*readmodel.SalesStats, error) {
	var stats readmodel.SalesStats
	if err := c.get(ctx, "orders.stats", "/orders/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
