package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/command"
	"github.com/example/skycart/internal/navigation"
)

var errIDRequired = errors.New("an id argument is required")

// idArg returns the first positional argument.
func idArg(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", errIDRequired
	}
	return id, nil
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Value: 1},
		&cli.IntFlag{Name: "limit", Value: 10},
	}
}

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "browse the catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list products, optionally filtered",
				Flags: append(pageFlags(),
					&cli.StringFlag{Name: "keyword"},
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "min-price"},
					&cli.StringFlag{Name: "max-price"},
					&cli.Float64Flag{Name: "min-rating"},
				),
				Action: action(func(c *cli.Context, a *app) error {
					filter, err := productFilter(c)
					if err != nil {
						return err
					}
					a.nav.Navigate(navigation.PathProducts)
					list, err := a.queries.ListProducts(c.Context, filter)
					if err != nil {
						return err
					}
					renderProducts(a.out, list)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "show one product with its reviews",
				ArgsUsage: "<product-id>",
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					a.nav.Navigate(navigation.PathProducts + "/" + id)
					p, err := a.queries.GetProduct(c.Context, id)
					if err != nil {
						return err
					}
					renderProduct(a.out, p)
					return nil
				}),
			},
		},
	}
}

func productFilter(c *cli.Context) (api.ProductFilter, error) {
	filter := api.ProductFilter{
		Keyword:  c.String("keyword"),
		Category: c.String("category"),
		Page:     c.Int("page"),
		Limit:    c.Int("limit"),
	}
	for name, dst := range map[string]**decimal.Decimal{
		"min-price": &filter.MinPrice,
		"max-price": &filter.MaxPrice,
	} {
		if !c.IsSet(name) {
			continue
		}
		v, err := decimal.NewFromString(c.String(name))
		if err != nil {
			return filter, fmt.Errorf("--%s: %w", name, err)
		}
		*dst = &v
	}
	if c.IsSet("min-rating") {
		rating := c.Float64("min-rating")
		filter.MinRating = &rating
	}
	return filter, nil
}

func reviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "review products you bought",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "rate a product; a second review replaces the first",
				ArgsUsage: "<product-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rating", Required: true, Usage: "1 to 5"},
					&cli.StringFlag{Name: "comment", Required: true},
				},
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					if err := a.requireUser(c.Context, navigation.PathProducts+"/"+id, false); err != nil {
						return err
					}
					return a.commands.SubmitReview(c.Context, command.SubmitReview{
						ProductID: id,
						Rating:    c.Int("rating"),
						Comment:   c.String("comment"),
					})
				}),
			},
			{
				Name:      "delete",
				Usage:     "remove your review of a product",
				ArgsUsage: "<product-id>",
				Action: action(func(c *cli.Context, a *app) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					if err := a.requireUser(c.Context, navigation.PathProducts+"/"+id, false); err != nil {
						return err
					}
					return a.commands.DeleteReview(c.Context, command.DeleteReview{ProductID: id})
				}),
			},
		},
	}
}
