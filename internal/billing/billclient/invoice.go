package billclient

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusIssued   InvoiceStatus = "ISSUED"
	InvoiceStatusPending  InvoiceStatus = "PENDING"
	InvoiceStatusDeclined InvoiceStatus = "DECLINED"
)

// InvoiceRequest is the payload submitted to the billing system.
type InvoiceRequest struct {
	RequestID string          `json:"request_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// InvoiceModel is the billing system's wire response.
type InvoiceModel struct {
	ID        string          `json:"id"`
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

func parseInvoiceStatus(status string) (InvoiceStatus, error) {
	switch status {
	case "ISSUED":
		return InvoiceStatusIssued, nil
	case "PENDING":
		return InvoiceStatusPending, nil
	case "DECLINED":
		return InvoiceStatusDeclined, nil
	default:
		return "", fmt.Errorf("unknown invoice status: %s", status)
	}
}

type Invoice struct {
	id        string
	requestID string
	status    InvoiceStatus
	amount    decimal.Decimal
}

// NewInvoice builds an invoice from wire fields, validating the status.
func NewInvoice(id, requestID, status string, amount decimal.Decimal) (*Invoice, error) {
	invoiceStatus, err := parseInvoiceStatus(status)
	if err != nil {
		return nil, err
	}

	return &Invoice{
		id:        id,
		requestID: requestID,
		status:    invoiceStatus,
		amount:    amount,
	}, nil
}

func (i *Invoice) ID() string {
	return i.id
}

func (i *Invoice) RequestID() string {
	return i.requestID
}

func (i *Invoice) Status() InvoiceStatus {
	return i.status
}

func (i *Invoice) Amount() decimal.Decimal {
	return i.amount
}
