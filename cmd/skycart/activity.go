package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/example/skycart/internal/activity"
)

var errActivityDisabled = errors.New("activity is not configured, set SKYCART_KAFKA_BROKERS")

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "storefront activity events",
		Subcommands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "print events as they happen until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Usage: "consumer group; empty reads from the newest offset"},
				},
				Action: action(func(c *cli.Context, a *app) error {
					if !a.cfg.ActivityEnabled() {
						return errActivityDisabled
					}
					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					consumer := activity.NewConsumer(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, c.String("group"), a.logger)
					defer consumer.Close()

					a.logger.WithField("topic", a.cfg.KafkaTopic).Info("tailing activity")
					err := consumer.Consume(ctx, activity.NewPrinter(a.out, a.logger).Handle)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}),
			},
		},
	}
}
