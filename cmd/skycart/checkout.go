package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/checkout"
	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/pricing"
)

func checkoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkout",
		Usage: "ship, confirm and pay for the cart",
		Subcommands: []*cli.Command{
			{
				Name:  "shipping",
				Usage: "set the delivery address; unset flags keep the saved value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "city"},
					&cli.StringFlag{Name: "country"},
					&cli.StringFlag{Name: "postal-code"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, checkout.StepShipping.Path(), false); err != nil {
						return err
					}
					var info cart.ShippingInfo
					if saved := a.store.Cart().ShippingInfo; saved != nil {
						info = *saved
					}
					for flag, dst := range map[string]*string{
						"address":     &info.Address,
						"city":        &info.City,
						"country":     &info.Country,
						"postal-code": &info.PostalCode,
						"phone":       &info.PhoneNo,
					} {
						if c.IsSet(flag) {
							*dst = c.String(flag)
						}
					}
					if _, err := a.checkout.SubmitShipping(c.Context, info); err != nil {
						return err
					}
					renderShipping(a.out, info)
					return nil
				}),
			},
			{
				Name:  "confirm",
				Usage: "review the order before paying",
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, checkout.StepConfirm.Path(), false); err != nil {
						return err
					}
					summary, err := a.checkout.Review()
					if err != nil {
						return err
					}
					w := table(a.out, "PRODUCT", "NAME", "QTY", "LINE")
					for _, item := range summary.Items {
						row(w, item.ProductID, item.Name, item.Quantity, pricing.Format(item.LineTotal()))
					}
					w.Flush()
					renderShipping(a.out, summary.ShippingInfo)
					renderTotals(a.out, summary.Totals)
					if pending, err := a.checkout.Pending(c.Context); err == nil && pending != nil {
						fmt.Fprintln(a.out, "A paid order is waiting, run `skycart checkout retry`.")
					}
					return nil
				}),
			},
			{
				Name:  "pay",
				Usage: "charge the card and place the order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "method", Value: "pm_card_visa", Usage: "payment method id"},
				},
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, checkout.StepPayment.Path(), false); err != nil {
						return err
					}
					o, err := a.checkout.Pay(c.Context, checkout.PaymentMethod(c.String("method")))
					if err != nil {
						return err
					}
					renderOrder(a.out, o)
					return nil
				}),
			},
			{
				Name:  "retry",
				Usage: "place a paid order whose creation failed, without charging again",
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, checkout.StepPayment.Path(), false); err != nil {
						return err
					}
					o, err := a.checkout.RetryOrder(c.Context)
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
