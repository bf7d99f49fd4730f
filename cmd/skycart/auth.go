package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/navigation"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and keep the session for later commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"SKYCART_PASSWORD"}},
			&cli.StringFlag{Name: "return-to", Usage: "page to continue to after signing in"},
		},
		Action: action(func(c *cli.Context, a *app) error {
			a.nav.Navigate(navigation.PathLogin)
			u, err := a.accounts.Login(c.Context, api.LoginRequest{
				Email:    c.String("email"),
				Password: c.String("password"),
			}, c.String("return-to"))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s <%s>\n", u.Name, u.Email)
			return nil
		}),
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"SKYCART_PASSWORD"}},
		},
		Action: action(func(c *cli.Context, a *app) error {
			a.nav.Navigate(navigation.PathRegister)
			u, err := a.accounts.Register(c.Context, api.RegisterRequest{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: c.String("password"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s\n", u.Name)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session",
		Action: action(func(c *cli.Context, a *app) error {
			return a.accounts.Logout(c.Context)
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in account",
		Action: action(func(c *cli.Context, a *app) error {
			if err := a.requireUser(c.Context, navigation.PathProfile, false); err != nil {
				return err
			}
			renderUser(a.out, a.store.Session().User)
			return nil
		}),
	}
}

func passwordCommand() *cli.Command {
	return &cli.Command{
		Name:  "password",
		Usage: "forgot, reset or change the password",
		Subcommands: []*cli.Command{
			{
				Name:  "forgot",
				Usage: "email a reset link",
				Flags: []cli.Flag{&cli.StringFlag{Name: "email", Required: true}},
				Action: action(func(c *cli.Context, a *app) error {
					return a.accounts.ForgotPassword(c.Context, api.ForgotPasswordRequest{Email: c.String("email")})
				}),
			},
			{
				Name:      "reset",
				Usage:     "set a new password with the token from the reset email",
				ArgsUsage: "<token>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "confirm", Required: true},
				},
				Action: action(func(c *cli.Context, a *app) error {
					return a.accounts.ResetPassword(c.Context, c.Args().First(), api.ResetPasswordRequest{
						Password:        c.String("password"),
						ConfirmPassword: c.String("confirm"),
					})
				}),
			},
			{
				Name:  "update",
				Usage: "change the password of the signed-in account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old", Required: true},
					&cli.StringFlag{Name: "new", Required: true},
					&cli.StringFlag{Name: "confirm", Required: true},
				},
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, navigation.PathProfile, false); err != nil {
						return err
					}
					return a.accounts.UpdatePassword(c.Context, api.UpdatePasswordRequest{
						OldPassword:     c.String("old"),
						NewPassword:     c.String("new"),
						ConfirmPassword: c.String("confirm"),
					})
				}),
			},
		},
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "manage the signed-in account",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "change name and email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "email"},
				},
				Action: action(func(c *cli.Context, a *app) error {
					if err := a.requireUser(c.Context, navigation.PathProfile, false); err != nil {
						return err
					}
					current := a.store.Session().User
					req := api.ProfileRequest{Name: current.Name, Email: current.Email}
					if c.IsSet("name") {
						req.Name = c.String("name")
					}
					if c.IsSet("email") {
						req.Email = c.String("email")
					}
					u, err := a.accounts.UpdateProfile(c.Context, req)
					if err != nil {
						return err
					}
					renderUser(a.out, u)
					return nil
				}),
			},
		},
	}
}
