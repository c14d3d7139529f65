package websites

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDomainEmpty   = errors.New("website domain is empty")
	ErrPriceNegative = errors.New("website price is negative")
	ErrStatusUnknown = errors.New("website status is unknown")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusPending, StatusActive, StatusDisabled:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrStatusUnknown, status)
	}
}

// Website is a catalog entry a guest post can be placed on.
type Website struct {
	ID              string
	Domain          string
	Category        string
	Price           decimal.Decimal
	DomainAuthority int
	MonthlyTraffic  int
	Status          Status
	CreatedAt       time.Time
}

// NewWebsite builds a new catalog entry. New entries start pending until an
// admin activates them.
func NewWebsite(domain, category string, price decimal.Decimal, domainAuthority, monthlyTraffic int) (*Website, error) {
	if domain == "" {
		return nil, ErrDomainEmpty
	}

	if price.IsNegative() {
		return nil, ErrPriceNegative
	}

	return &Website{
		ID:              uuid.NewString(),
		Domain:          domain,
		Category:        category,
		Price:           price,
		DomainAuthority: domainAuthority,
		MonthlyTraffic:  monthlyTraffic,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}, nil
}
