package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/command"
	"github.com/example/skycart/internal/navigation"
	"github.com/example/skycart/internal/readmodel"
)

// adminAction runs fn behind the admin gate for path.
func adminAction(path string, fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return action(func(c *cli.Context, a *app) error {
		if err := a.requireUser(c.Context, path, true); err != nil {
			return err
		}
		return fn(c, a)
	})
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "store administration, admin accounts only",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "sales summary",
				Action: adminAction(navigation.PathAdmin, func(c *cli.Context, a *app) error {
					stats, err := a.queries.SalesStats(c.Context)
					if err != nil {
						return err
					}
					renderStats(a.out, stats)
					return nil
				}),
			},
			adminProductsCommand(),
			adminOrdersCommand(),
			adminUsersCommand(),
			{
				Name:  "reviews",
				Usage: "moderate reviews",
				Subcommands: []*cli.Command{
					{
						Name:      "delete",
						Usage:     "delete the reviews of a product",
						ArgsUsage: "<product-id>",
						Action: adminAction("/admin/reviews", func(c *cli.Context, a *app) error {
							id, err := idArg(c)
							if err != nil {
								return err
							}
							return a.commands.DeleteProductReviews(c.Context, command.DeleteProductReviews{ProductID: id})
						}),
					},
				},
			},
		},
	}
}

func productInputFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Required: required},
		&cli.StringFlag{Name: "price", Required: required},
		&cli.StringFlag{Name: "description", Required: required},
		&cli.StringFlag{Name: "category", Required: required, Usage: "one of the catalog categories"},
		&cli.StringFlag{Name: "seller", Required: required},
		&cli.IntFlag{Name: "stock"},
		&cli.StringSliceFlag{Name: "image", Required: required, Usage: "image reference, repeatable"},
	}
}

// productInput overlays the flags that were set on base.
func productInput(c *cli.Context, base api.ProductInput) (api.ProductInput, error) {
	in := base
	if c.IsSet("name") {
		in.Name = c.String("name")
	}
	if c.IsSet("price") {
		price, err := decimal.NewFromString(c.String("price"))
		if err != nil {
			return in, fmt.Errorf("--price: %w", err)
		}
		in.Price = price
	}
	if c.IsSet("description") {
		in.Description = c.String("description")
	}
	if c.IsSet("category") {
		in.Category = c.String("category")
	}
	if c.IsSet("seller") {
		in.Seller = c.String("seller")
	}
	if c.IsSet("stock") {
		in.Stock = c.Int("stock")
	}
	if c.IsSet("image") {
		in.Images = nil
		for _, ref := range c.StringSlice("image") {
			in.Images = append(in.Images, readmodel.ProductImage{Image: ref})
		}
	}
	return in, nil
}

func adminProductsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "manage the catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: pageFlags(),
				Action: adminAction("/admin/products", func(c *cli.Context, a *app) error {
					list, err := a.queries.AdminListProducts(c.Context, c.Int("page"), c.Int("limit"))
					if err != nil {
						return err
					}
					renderProducts(a.out, list)
					return nil
				}),
			},
			{
				Name:  "create",
				Flags: productInputFlags(true),
				Action: adminAction("/admin/product/new", func(c *cli.Context, a *app) error {
					in, err := productInput(c, api.ProductInput{})
					if err != nil {
						return err
					}
					p, err := a.commands.CreateProduct(c.Context, command.CreateProduct{Input: in})
					if err != nil {
						return err
					}
					renderProduct(a.out, p)
					return nil
				}),
			},
			{
				Name:      "update",
				ArgsUsage: "<product-id>",
				Flags:     productInputFlags(false),
				Action: adminAction("/admin/products", func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					current, err := a.queries.GetProduct(c.Context, id)
					if err != nil {
						return err
					}
					in, err := productInput(c, api.ProductInput{
						Name:        current.Name,
						Price:       current.Price,
						Description: current.Description,
						Category:    current.Category,
						Seller:      current.Seller,
						Stock:       current.Stock,
						Images:      current.Images,
					})
					if err != nil {
						return err
					}
					p, err := a.commands.UpdateProduct(c.Context, command.UpdateProduct{ProductID: id, Input: in})
					if err != nil {
						return err
					}
					renderProduct(a.out, p)
					return nil
				}),
			},
			{
				Name:      "delete",
				ArgsUsage: "<product-id>",
				Action: adminAction("/admin/products", func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					return a.commands.DeleteProduct(c.Context, command.DeleteProduct{ProductID: id})
				}),
			},
		},
	}
}

func adminOrdersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "manage every customer's orders",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: pageFlags(),
				Action: adminAction("/admin/orders", func(c *cli.Context, a *app) error {
					list, err := a.queries.ListAllOrders(c.Context, c.Int("page"), c.Int("limit"))
					if err != nil {
						return err
					}
					renderOrders(a.out, list)
					return nil
				}),
			},
			{
				Name:      "show",
				ArgsUsage: "<order-id>",
				Action: adminAction("/admin/orders", func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					o, err := a.queries.AdminGetOrder(c.Context, id)
					if err != nil {
						return err
					}
					renderOrder(a.out, o)
					return nil
				}),
			},
			{
				Name:      "status",
				Usage:     "move an order to another status",
				ArgsUsage: "<order-id> <status>",
				Action: adminAction("/admin/orders", func(c *cli.Context, a *app) error {
					id, status := c.Args().Get(0), c.Args().Get(1)
					if id == "" || status == "" {
						return fmt.Errorf("usage: skycart admin orders status <order-id> <status>")
					}
					current, err := a.queries.AdminGetOrder(c.Context, id)
					if err != nil {
						return err
					}
					o, err := a.commands.UpdateOrderStatus(c.Context, command.UpdateOrderStatus{
						OrderID:       id,
						CurrentStatus: current.OrderStatus,
						Status:        status,
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

func adminUsersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: pageFlags(),
				Action: adminAction("/admin/users", func(c *cli.Context, a *app) error {
					list, err := a.queries.ListUsers(c.Context, c.Int("page"), c.Int("limit"))
					if err != nil {
						return err
					}
					renderUsers(a.out, list)
					return nil
				}),
			},
			{
				Name:      "show",
				ArgsUsage: "<user-id>",
				Action: adminAction("/admin/users", func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					u, err := a.queries.GetUser(c.Context, id)
					if err != nil {
						return err
					}
					renderUser(a.out, u)
					return nil
				}),
			},
			{
				Name:      "update",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "role", Usage: "user or admin"},
				},
				Action: adminAction("/admin/users", func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					current, err := a.queries.GetUser(c.Context, id)
					if err != nil {
						return err
					}
					update := api.UserUpdate{Name: current.Name, Email: current.Email, Role: current.Role}
					if c.IsSet("name") {
						update.Name = c.String("name")
					}
					if c.IsSet("email") {
						update.Email = c.String("email")
					}
					if c.IsSet("role") {
						update.Role = c.String("role")
					}
					u, err := a.commands.UpdateUser(c.Context, command.UpdateUser{UserID: id, Update: update})
					if err != nil {
						return err
					}
					renderUser(a.out, u)
					return nil
				}),
			},
			{
				Name:      "delete",
				ArgsUsage: "<user-id>",
				Action: adminAction("/admin/users", func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					return a.commands.DeleteUser(c.Context, command.DeleteUser{UserID: id})
				}),
			},
		},
	}
}
