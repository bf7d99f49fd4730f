package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/account"
	"github.com/example/skycart/internal/activity"
	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/auth"
	"github.com/example/skycart/internal/checkout"
	"github.com/example/skycart/internal/command"
	"github.com/example/skycart/internal/config"
	"github.com/example/skycart/internal/logging"
	"github.com/example/skycart/internal/metrics"
	"github.com/example/skycart/internal/navigation"
	"github.com/example/skycart/internal/notice"
	"github.com/example/skycart/internal/persist"
	"github.com/example/skycart/internal/query"
	"github.com/example/skycart/internal/storage"
	"github.com/example/skycart/internal/store"
)

var (
	errLoginRequired = errors.New("you are not logged in, run `skycart login` first")
	errAdminRequired = errors.New("this command needs an admin account")
)

type settings struct {
	envFile  string
	apiURL   string
	logLevel string
	out      io.Writer
	errOut   io.Writer
}

// app is everything one CLI invocation needs, wired the same way every time.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	out      io.Writer
	errOut   io.Writer
	metrics  *metrics.Metrics
	backend  storage.Store
	store    *store.Store
	client   *api.Client
	queries  *query.Handler
	commands *command.Handler
	accounts *account.Service
	checkout *checkout.Flow
	nav      *navigation.Navigator
	notices  *notice.Center

	closers []func() error
}

func newApp(ctx context.Context, s settings) (*app, error) {
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.errOut == nil {
		s.errOut = os.Stderr
	}

	cfg, err := config.Load(s.envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if s.apiURL != "" {
		cfg.APIURL = s.apiURL
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}

	logger, err := logging.New(s.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, out: s.out, errOut: s.errOut}

	a.metrics, err = metrics.New(ctx, cfg.Metrics())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.metrics.Shutdown(shutdownCtx)
	})

	a.backend, err = storage.Open(ctx, cfg.Storage())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open state backend: %w", err)
	}
	a.closers = append(a.closers, a.backend.Close)

	persister := persist.New(a.backend, logger)
	initial, err := persister.Load(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher activity.Publisher = activity.Nop{}
	if cfg.ActivityEnabled() {
		kafkaPublisher := activity.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		a.closers = append(a.closers, kafkaPublisher.Close)
		publisher = kafkaPublisher
	}
	publisher = a.metrics.Publisher(publisher)

	a.notices = notice.NewCenter(logger)
	a.notices.Subscribe(func(n notice.Notice) {
		// Errors reach the terminal through the command's returned error.
		if n.Level != notice.LevelError {
			fmt.Fprintf(a.errOut, "[%s] %s\n", n.Level, n.Message)
		}
	})

	a.store = store.New(initial, a.notices, logger)
	a.store.Subscribe(persister.Observer())
	a.store.Subscribe(store.PublishActivity(publisher, logger))

	a.client = api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithTokenSource(a.store.Token),
		api.WithObserver(a.metrics),
		api.WithLogger(logger),
	)
	cache := query.NewCache(query.WithObserver(a.metrics), query.WithLogger(logger))
	a.queries = query.NewHandler(a.client, cache, logger)
	a.commands = command.NewHandler(a.client, cache, a.notices, publisher, logger)

	a.nav = navigation.New(navigation.PathHome, logger)
	a.accounts = account.NewService(a.client, a.store, a.queries, a.nav, a.notices, logger)
	a.client.SetUnauthorizedHandler(a.accounts.HandleUnauthorized)

	a.checkout = checkout.NewFlow(checkout.Config{
		Store:     a.store,
		Payments:  a.client,
		Confirmer: checkout.NewStripeConfirmer(cfg.StripeURL, a.queries.StripeKey, nil, logger),
		Orders:    a.commands,
		Navigator: a.nav,
		Notifier:  a.notices,
		Publisher: publisher,
		Pending:   a.backend,
		Logger:    logger,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

// requireUser restores the persisted session and runs the auth gate for
// path. It returns an error instead of rendering when the gate redirects.
func (a *app) requireUser(ctx context.Context, path string, admin bool) error {
	if a.store.Token() != "" && a.store.Session().User == nil {
		if _, err := a.accounts.Restore(ctx); err != nil {
			return err
		}
	}
	session := a.store.Session()
	d := auth.Gate(auth.GateInput{
		Authenticated: session.IsAuthenticated && session.User != nil,
		Admin:         session.IsAdmin(),
		RequiresAdmin: admin,
		Requested:     path,
	})
	switch d.Outcome {
	case auth.RedirectLogin:
		a.nav.Navigate(d.LoginURL())
		return errLoginRequired
	case auth.RedirectHome:
		a.nav.Navigate(d.Path)
		return errAdminRequired
	}
	a.nav.Navigate(path)
	return nil
}

// describe renders an error for the terminal.
func describe(err error) string {
	var blocked *checkout.BlockedError
	switch {
	case errors.As(err, &blocked):
		return fmt.Sprintf("cannot continue to %s yet, finish the %s step first", blocked.Step, blocked.RedirectTo)
	case api.IsNotFound(err):
		return api.Message(err) + " (not found, check the id or list again)"
	default:
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return api.Message(err)
		}
		return err.Error()
	}
}
