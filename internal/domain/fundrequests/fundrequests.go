//nolint:wrapcheck
package fundrequests

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUserIDEmpty          = errors.New("fund request user id is empty")
	ErrAmountTooSmall       = errors.New("fund request amount must be at least 1")
	ErrStatusUnknown        = errors.New("fund request status is unknown")
	ErrTransitionNotAllowed = errors.New("fund request status transition is not allowed")
)

// minAmount is the smallest accepted top-up.
var minAmount = decimal.NewFromInt(1)

type Status string

const (
	StatusPending     Status = "pending"
	StatusInvoiceSent Status = "invoice_sent"
	StatusPaid        Status = "paid"
	StatusRejected    Status = "rejected"
)

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusPending, StatusInvoiceSent, StatusPaid, StatusRejected:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrStatusUnknown, status)
	}
}

// transitions is the allowed status transition table. Paid and rejected are
// terminal: re-approving or re-rejecting a settled request fails.
var transitions = map[Status][]Status{
	StatusPending:     {StatusInvoiceSent, StatusPaid, StatusRejected},
	StatusInvoiceSent: {StatusPaid, StatusRejected},
}

// CanTransition reports whether a fund request may move from its current
// status to the target status.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// TransitionSources returns every status from which the target status is
// reachable. Storage implementations use this set as the guard of a
// conditional status update, so two concurrent approvals cannot both credit
// the balance.
func TransitionSources(to Status) []Status {
	var sources []Status

	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}

	return sources
}

type FundRequest struct {
	id          string
	userID      string
	amount      decimal.Decimal
	status      Status
	adminNotes  string
	processedBy string
	processedAt time.Time
	createdAt   time.Time
}

// CreateFundRequest builds a new pending fund request.
func CreateFundRequest(userID string, amount decimal.Decimal) (*FundRequest, error) {
	if userID == "" {
		return nil, ErrUserIDEmpty
	}

	if amount.LessThan(minAmount) {
		return nil, ErrAmountTooSmall
	}

	return &FundRequest{
		id:        uuid.NewString(),
		userID:    userID,
		amount:    amount,
		status:    StatusPending,
		createdAt: time.Now(),
	}, nil
}

// NewFundRequest rehydrates a fund request from stored fields.
func NewFundRequest(id, userID string, amount decimal.Decimal, status Status,
	adminNotes, processedBy string, processedAt, createdAt time.Time,
) (*FundRequest, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	return &FundRequest{
		id:          id,
		userID:      userID,
		amount:      amount,
		status:      status,
		adminNotes:  adminNotes,
		processedBy: processedBy,
		processedAt: processedAt,
		createdAt:   createdAt,
	}, nil
}

func (f *FundRequest) ID() string {
	return f.id
}

func (f *FundRequest) UserID() string {
	return f.userID
}

func (f *FundRequest) Amount() decimal.Decimal {
	return f.amount
}

func (f *FundRequest) Status() Status {
	return f.status
}

func (f *FundRequest) AdminNotes() string {
	return f.adminNotes
}

func (f *FundRequest) ProcessedBy() string {
	return f.processedBy
}

func (f *FundRequest) ProcessedAt() time.Time {
	return f.processedAt
}

func (f *FundRequest) CreatedAt() time.Time {
	return f.createdAt
}

// SetStatus applies a status transition, enforcing the transition table.
func (f *FundRequest) SetStatus(status Status) error {
	if !CanTransition(f.status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, f.status, status)
	}

	f.status = status

	return nil
}

// Approve moves the fund request to paid and records the processing actor.
// Crediting the owner's balance is the storage layer's side of the same
// transaction.
func (f *FundRequest) Approve(processedBy string) error {
	if err := f.SetStatus(StatusPaid); err != nil {
		return err
	}

	f.processedBy = processedBy
	f.processedAt = time.Now()

	return nil
}

// Reject moves the fund request to rejected and records the admin notes.
func (f *FundRequest) Reject(processedBy, notes string) error {
	if err := f.SetStatus(StatusRejected); err != nil {
		return err
	}

	f.adminNotes = notes
	f.processedBy = processedBy
	f.processedAt = time.Now()

	return nil
}
