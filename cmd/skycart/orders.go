package main

import (
	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/command"
	"github.com/example/skycart/internal/navigation"
)

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "your order history",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list your orders",
				Flags: pageFlags(),
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, navigation.PathMyOrders, false); err != nil {
						return err
					}
					list, err := a.queries.MyOrders(c.Context, c.Int("page"), c.Int("limit"))
					if err != nil {
						return err
					}
					renderOrders(a.out, list)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "show one order",
				ArgsUsage: "<order-id>",
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					if err := a.requireUser(c.Context, navigation.PathMyOrders+"/"+id, false); err != nil {
						return err
					}
					o, err := a.queries.GetOrder(c.Context, id)
					if err != nil {
						return err
					}
					renderOrder(a.out, o)
					return nil
				}),
			},
			{
				Name:      "cancel",
				Usage:     "cancel an order that has not shipped",
				ArgsUsage: "<order-id>",
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					if err := a.requireUser(c.Context, navigation.PathMyOrders+"/"+id, false); err != nil {
						return err
					}
					current, err := a.queries.GetOrder(c.Context, id)
					if err != nil {
						return err
					}
					o, err := a.commands.CancelOrder(c.Context, command.CancelOrder{
						OrderID:       id,
						CurrentStatus: current.OrderStatus,
					})
					if err != nil {
						return err
					}
					renderOrder(a.out, o)
					return nil
				}),
			},
		},
	}
}
