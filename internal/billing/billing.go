package billing

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/postmarket/postmarket/internal/billing/billclient"
	"github.com/postmarket/postmarket/internal/billing/billprocessor"
	"github.com/postmarket/postmarket/internal/httpclient"
	"github.com/postmarket/postmarket/internal/storage"
)

// Billing is the invoicing daemon. It periodically submits pending fund
// requests to the external billing system and advances them to invoice_sent.
type Billing struct {
	log          *slog.Logger
	pollInterval time.Duration
	processor    *billprocessor.BillingProcessor
}

type Config struct {
	logger       *slog.Logger
	pollInterval time.Duration
	billingURI   string
}

func NewBilling(store storage.Storage, opts ...Option) *Billing {
	cfg := &Config{
		logger:       slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		pollInterval: 10 * time.Second,
		billingURI:   "http://localhost:8081",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := httpclient.New(httpclient.WithBaseURL(cfg.billingURI))

	billClient := billclient.New(
		billclient.WithLogger(cfg.logger),
		billclient.WithClient(httpClient),
	)

	billProcessor := billprocessor.New(
		store,
		billClient,
		billprocessor.WithLogger(cfg.logger),
	)

	return &Billing{
		log:          cfg.logger.With(slog.String("module", "billing")),
		pollInterval: cfg.pollInterval,
		processor:    billProcessor,
	}
}

type Option func(b *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Config) {
		b.logger = logger
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(b *Config) {
		b.pollInterval = interval
	}
}

func WithBillingURI(uri string) Option {
	return func(b *Config) {
		b.billingURI = uri
	}
}

func (b *Billing) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	b.log.Info("Start billing daemon")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Context done, stopping billing daemon")

			return nil

		case <-ticker.C:
			if err := b.processor.Process(ctx); err != nil {
				b.log.Error("processor.Process", slog.Any("error", err))
			}
		}
	}
}
