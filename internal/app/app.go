package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/postmarket/postmarket/internal/billing"
	"github.com/postmarket/postmarket/internal/config"
	"github.com/postmarket/postmarket/internal/logger"
	"github.com/postmarket/postmarket/internal/server"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/postmarket/postmarket/internal/storage/inmemory"
	"github.com/postmarket/postmarket/internal/storage/pgstorage"
)

type Application struct {
	log     *slog.Logger
	server  *server.Server
	billing *billing.Billing
	store   storage.Storage
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLevel: %w", err)
	}

	logg := logger.New(
		logger.WithLevel(logLevel),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAddSource(false),
	)

	store, err := newStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("newStorage: %w", err)
	}

	srv, err := server.NewServer(
		store,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey([]byte(cfg.JWTSecretKey)),
		server.WithLogger(logg),
	)
	if err != nil {
		return nil, fmt.Errorf("server.NewServer: %w", err)
	}

	bill := billing.NewBilling(
		store,
		billing.WithLogger(logg),
		billing.WithBillingURI(cfg.BillingURI),
		billing.WithPollInterval(cfg.BillingPollInterval),
	)

	return &Application{
		log:     logg,
		server:  srv,
		billing: bill,
		store:   store,
	}, nil
}

// newStorage selects the storage backend: Postgres when a database URI is
// configured, the in-memory store otherwise.
func newStorage(cfg config.Config) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		return storage.NewStorage(inmemory.NewStorage()), nil
	}

	pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	if err := pgstore.Bootstrap(context.Background()); err != nil {
		return nil, fmt.Errorf("pgstore.Bootstrap: %w", err)
	}

	return storage.NewStorage(pgstore), nil
}

func (a *Application) Run() error {
	defer a.store.Close() //nolint:errcheck

	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.billing.Run(ctx); err != nil {
			errChan <- fmt.Errorf("billing.Run: %w", err)
		}
	}()

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-errChan:
			return err

		case <-quit:
			a.log.Info("Gracefully shutting down application...")

			cancel()

			if err := a.server.Shutdown(context.Background()); err != nil {
				return fmt.Errorf("server.Shutdown: %w", err)
			}

			return nil
		}
	}
}
