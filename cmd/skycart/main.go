package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "skycart",
		Usage:   "SkyCart storefront and admin console",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
			&cli.StringFlag{Name: "api-url", Usage: "storefront API base URL", EnvVars: []string{"SKYCART_API_URL"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", EnvVars: []string{"SKYCART_LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			whoamiCommand(),
			passwordCommand(),
			profileCommand(),
			productsCommand(),
			reviewCommand(),
			cartCommand(),
			checkoutCommand(),
			ordersCommand(),
			adminCommand(),
			activityCommand(),
		},
	}
}

// action wires the application for one command and tears it down after.
func action(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c.Context, settings{
			envFile:  c.String("env-file"),
			apiURL:   c.String("api-url"),
			logLevel: c.String("log-level"),
			out:      c.App.Writer,
			errOut:   c.App.ErrWriter,
		})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}
