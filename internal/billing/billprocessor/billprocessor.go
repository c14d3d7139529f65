package billprocessor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/postmarket/postmarket/internal/billing/billclient"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/storage"
)

// InvoiceIssuer is the billing system surface the processor depends on.
type InvoiceIssuer interface {
	CreateInvoice(ctx context.Context, req *fundrequests.FundRequest) (*billclient.Invoice, error)
}

type BillingProcessor struct {
	log        *slog.Logger
	storage    storage.Storage
	billclient InvoiceIssuer
	poolSize   int
}

type Config struct {
	logger   *slog.Logger
	poolSize int
}

type Option func(b *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Config) {
		b.logger = logger
	}
}

func WithPoolSize(size int) Option {
	return func(b *Config) {
		b.poolSize = size
	}
}

func New(store storage.Storage, billclient InvoiceIssuer, opts ...Option) *BillingProcessor {
	cfg := &Config{
		logger:   slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		poolSize: 1,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &BillingProcessor{
		log:        cfg.logger.With(slog.String("module", "billing_processor")),
		storage:    store,
		billclient: billclient,
		poolSize:   cfg.poolSize,
	}
}

// Process submits every pending fund request to the billing system and marks
// the invoiced ones.
func (b *BillingProcessor) Process(ctx context.Context) error {
	b.log.Info("Start fund requests processing")

	reqs, err := b.storage.GetFundRequestsByStatus(ctx, fundrequests.StatusPending)
	if err != nil {
		return fmt.Errorf("storage.GetFundRequestsByStatus: %w", err)
	}

	if len(reqs) == 0 {
		b.log.Info("No fund requests to process, stopping processing")

		return nil
	}

	reqCh := requestGenerator(ctx, reqs)

	b.requestProcessor(ctx, reqCh)

	return nil
}

func requestGenerator(ctx context.Context, reqs []*fundrequests.FundRequest) chan *fundrequests.FundRequest {
	requestsCh := make(chan *fundrequests.FundRequest)

	go func() {
		defer close(requestsCh)

		for _, req := range reqs {
			select {
			case <-ctx.Done():
				return
			case requestsCh <- req:
			}
		}
	}()

	return requestsCh
}

func (b *BillingProcessor) requestProcessor(ctx context.Context, reqCh chan *fundrequests.FundRequest) {
	wg := &sync.WaitGroup{}

	// Spawn workers
	for w := 1; w <= b.poolSize; w++ {
		wg.Add(1)
		go b.requestProcessorWorker(ctx, wg, reqCh)
	}

	// Wait for workers
	wg.Wait()
}

func (b *BillingProcessor) requestProcessorWorker(ctx context.Context, wg *sync.WaitGroup, reqCh chan *fundrequests.FundRequest) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Context done, stopping processing")

			return

		case req, ok := <-reqCh:
			if !ok {
				b.log.Info("Fund requests channel closed, stopping processing")

				return
			}

			b.log.Info("Processing fund request", slog.String("request_id", req.ID()))

			invoice, err := b.billclient.CreateInvoice(ctx, req)
			if err != nil {
				b.log.Error("billclient.CreateInvoice()", slog.Any("error", err))

				continue
			}

			// A declined or still-pending invoice leaves the request
			// untouched for the next poll.
			if invoice.Status() != billclient.InvoiceStatusIssued {
				b.log.Info("Invoice is not issued yet in billing system",
					slog.String("request_id", req.ID()),
					slog.String("invoice_status", string(invoice.Status())),
				)

				continue
			}

			if err := b.storage.MarkFundRequestInvoiced(ctx, req.ID()); err != nil {
				b.log.Error("storage.MarkFundRequestInvoiced()", slog.Any("error", err))

				continue
			}

			b.log.Info("Fund request invoiced",
				slog.String("request_id", req.ID()),
				slog.String("invoice_id", invoice.ID()),
				slog.String("request_user", req.UserID()),
				slog.String("request_amount", req.Amount().String()),
			)
		}
	}
}
