package billclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/httpclient"
)

var (
	ErrTooManyRequests    = errors.New("too many requests")
	ErrSomethingWentWrong = errors.New("something went wrong")
)

type BillingClient struct {
	log    *slog.Logger
	client *resty.Client
}

func New(opts ...Option) *BillingClient {
	billClient := &BillingClient{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(billClient)
	}

	return billClient
}

type Option func(b *BillingClient)

func WithLogger(logger *slog.Logger) Option {
	return func(b *BillingClient) {
		b.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(b *BillingClient) {
		b.client = client
	}
}

// CreateInvoice submits a pending fund request to the billing system and
// returns the issued invoice.
func (b *BillingClient) CreateInvoice(ctx context.Context, req *fundrequests.FundRequest) (*Invoice, error) {
	invoiceData := new(InvoiceModel)

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(InvoiceRequest{
			RequestID: req.ID(),
			UserID:    req.UserID(),
			Amount:    req.Amount(),
		}).
		SetResult(invoiceData).
		Post("/api/invoices")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	case http.StatusInternalServerError:
		return nil, ErrSomethingWentWrong
	}

	invoice, err := NewInvoice(invoiceData.ID, invoiceData.RequestID, invoiceData.Status, invoiceData.Amount)
	if err != nil {
		return nil, fmt.Errorf("NewInvoice: %w", err)
	}

	return invoice, nil
}
