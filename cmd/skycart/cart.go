package main

import (
	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/navigation"
	"github.com/example/skycart/internal/pricing"
)

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "manage the cart kept on this machine",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "list cart lines with totals",
				Action: action(func(c *cli.Context, a *app) error {
					a.nav.Navigate(navigation.PathCart)
					renderCart(a.out, a.store.Cart(), pricing.DefaultPolicy())
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "add a product to the cart",
				ArgsUsage: "<product-id>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "qty", Value: 1}},
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					p, err := a.queries.GetProduct(c.Context, id)
					if err != nil {
						return err
					}
					_, err = a.store.Dispatch(cart.AddItem{
						Item: cart.CartItem{
							ProductID: p.ID,
							Name:      p.Name,
							Price:     p.Price,
							Image:     p.FirstImage(),
							Stock:     p.Stock,
						},
						Quantity: c.Int("qty"),
					})
					return err
				}),
			},
			{
				Name:      "set",
				Usage:     "change a line's quantity; 0 removes it",
				ArgsUsage: "<product-id>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "qty", Required: true}},
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					_, err = a.store.Dispatch(cart.SetQuantity{ProductID: id, Quantity: c.Int("qty")})
					return err
				}),
			},
			{
				Name:      "remove",
				Usage:     "remove a line",
				ArgsUsage: "<product-id>",
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					_, err = a.store.Dispatch(cart.RemoveItem{ProductID: id})
					return err
				}),
			},
			{
				Name:  "clear",
				Usage: "empty the cart",
				Action: action(func(c *cli.Context, a *app) error {
					_, err := a.store.Dispatch(cart.Clear{})
					return err
				}),
			},
		},
	}
}
