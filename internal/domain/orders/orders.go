//nolint:wrapcheck
package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderUserIDEmpty     = errors.New("order user id is empty")
	ErrOrderItemNameEmpty   = errors.New("order item name is empty")
	ErrOrderPriceNegative   = errors.New("order price is negative")
	ErrOrderStatusUnknown   = errors.New("order status is unknown")
	ErrTransitionNotAllowed = errors.New("order status transition is not allowed")
	ErrSubmissionClosed     = errors.New("order no longer accepts submissions")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrOrderStatusUnknown, status)
	}
}

// transitions is the allowed status transition table. Completed and failed
// are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether an order may move from its current status to
// the target status.
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
// conditional status update.
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

// Submission is the article payload a buyer attaches to an order. The
// attachment body is carried as base64 text.
type Submission struct {
	ArticleText    string
	AttachmentName string
	AttachmentData string
	Message        string
}

// Completion is the payload written by the completed transition.
type Completion struct {
	Message     string
	Link        string
	CompletedAt time.Time
}

type Order struct {
	id         string
	userID     string
	itemName   string
	price      decimal.Decimal
	status     Status
	submission Submission
	completion Completion
	createdAt  time.Time
}

// CreateOrder builds a new pending order from purchase input.
func CreateOrder(userID, itemName string, price decimal.Decimal) (*Order, error) {
	if userID == "" {
		return nil, ErrOrderUserIDEmpty
	}

	if itemName == "" {
		return nil, ErrOrderItemNameEmpty
	}

	if price.IsNegative() {
		return nil, ErrOrderPriceNegative
	}

	return &Order{
		id:        uuid.NewString(),
		userID:    userID,
		itemName:  itemName,
		price:     price,
		status:    StatusPending,
		createdAt: time.Now(),
	}, nil
}

// NewOrder rehydrates an order from stored fields.
func NewOrder(id, userID, itemName string, price decimal.Decimal, status Status,
	submission Submission, completion Completion, createdAt time.Time,
) (*Order, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	return &Order{
		id:         id,
		userID:     userID,
		itemName:   itemName,
		price:      price,
		status:     status,
		submission: submission,
		completion: completion,
		createdAt:  createdAt,
	}, nil
}

func (o *Order) ID() string {
	return o.id
}

func (o *Order) UserID() string {
	return o.userID
}

func (o *Order) ItemName() string {
	return o.itemName
}

func (o *Order) Price() decimal.Decimal {
	return o.price
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) Submission() Submission {
	return o.submission
}

func (o *Order) Completion() Completion {
	return o.completion
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// SetStatus applies a status transition, enforcing the transition table.
func (o *Order) SetStatus(status Status) error {
	if !CanTransition(o.status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, o.status, status)
	}

	o.status = status

	return nil
}

// Complete moves the order to completed and records the completion payload.
// Only a processing order can be completed.
func (o *Order) Complete(message, link string) error {
	if err := o.SetStatus(StatusCompleted); err != nil {
		return err
	}

	o.completion = Completion{
		Message:     message,
		Link:        link,
		CompletedAt: time.Now(),
	}

	return nil
}

// SetSubmission attaches a submission payload. Submissions are accepted only
// while the order is pending or processing.
func (o *Order) SetSubmission(submission Submission) error {
	if o.status != StatusPending && o.status != StatusProcessing {
		return fmt.Errorf("%w: status %s", ErrSubmissionClosed, o.status)
	}

	o.submission = submission

	return nil
}
