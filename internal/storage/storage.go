package storage

import (
	"context"
	"errors"
	"time"

	"github.com/postmarket/postmarket/internal/domain/blog"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/domain/reviews"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/shopspring/decimal"
)

var (
	ErrUserAlreadyExists       = errors.New("user already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrOrderAlreadyExists      = errors.New("order already exists")
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderStateInvalid       = errors.New("order is not in a state allowing this transition")
	ErrFundRequestNotFound     = errors.New("fund request not found")
	ErrFundRequestStateInvalid = errors.New("fund request is not in a state allowing this transition")
	ErrWebsiteNotFound         = errors.New("website not found")
	ErrBlogPostAlreadyExists   = errors.New("blog post already exists")
	ErrBlogPostNotFound        = errors.New("blog post not found")
)

// Page is a pagination window for list queries.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderFilter narrows order list queries. Empty fields match everything.
type OrderFilter struct {
	UserID string
	Status orders.Status
}

// FundRequestFilter narrows fund request list queries.
type FundRequestFilter struct {
	UserID string
	Status fundrequests.Status
}

// WebsiteFilter narrows catalog list queries.
type WebsiteFilter struct {
	Category string
	Status   websites.Status
}

// AdminStats is the read-only aggregate snapshot behind the admin dashboard.
type AdminStats struct {
	TotalUsers          int
	ActiveUsers         int
	TotalWebsites       int
	ActiveWebsites      int
	TotalOrders         int
	OrdersByStatus      map[orders.Status]int
	CompletedRevenue    decimal.Decimal
	PendingFundRequests int
	PaidFundsTotal      decimal.Decimal
	RecentOrders        []*orders.Order
}

type UserStorage interface {
	CreateUser(ctx context.Context, usr *users.User) error
	GetUserByLogin(ctx context.Context, login string) (*users.User, error)
	GetUserByID(ctx context.Context, id string) (*users.User, error)
	ListUsers(ctx context.Context, page Page) ([]*users.User, int, error)
	UpdateUserStatus(ctx context.Context, id string, status users.Status) error
}

type OrderStorage interface {
	CreateOrder(ctx context.Context, order *orders.Order) error
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, page Page) ([]*orders.Order, int, error)
	// TransitionOrder conditionally moves an order to the target status. It
	// fails with ErrOrderStateInvalid when the current status does not allow
	// the transition.
	TransitionOrder(ctx context.Context, id string, to orders.Status) error
	// CompleteOrder is TransitionOrder to completed plus the completion
	// payload, applied as one conditional update.
	CompleteOrder(ctx context.Context, id, message, link string, completedAt time.Time) error
	UpdateOrderSubmission(ctx context.Context, id, userID string, submission orders.Submission) error
}

type FundRequestStorage interface {
	CreateFundRequest(ctx context.Context, req *fundrequests.FundRequest) error
	GetFundRequest(ctx context.Context, id string) (*fundrequests.FundRequest, error)
	ListFundRequests(ctx context.Context, filter FundRequestFilter, page Page) ([]*fundrequests.FundRequest, int, error)
	GetFundRequestsByStatus(ctx context.Context, statuses ...fundrequests.Status) ([]*fundrequests.FundRequest, error)
	// ApproveFundRequest marks the request paid and credits the owner's
	// balance by the request amount in a single transaction. The status
	// update is conditional on the current status still allowing the paid
	// transition, so a request is credited exactly once.
	ApproveFundRequest(ctx context.Context, id, processedBy string) error
	RejectFundRequest(ctx context.Context, id, processedBy, notes string) error
	MarkFundRequestInvoiced(ctx context.Context, id string) error
}

type WebsiteStorage interface {
	CreateWebsite(ctx context.Context, site *websites.Website) error
	GetWebsite(ctx context.Context, id string) (*websites.Website, error)
	ListWebsites(ctx context.Context, filter WebsiteFilter, page Page) ([]*websites.Website, int, error)
	UpdateWebsiteStatus(ctx context.Context, id string, status websites.Status) error
	DeleteWebsite(ctx context.Context, id string) error
}

type BlogStorage interface {
	CreateBlogPost(ctx context.Context, post *blog.Post) error
	GetBlogPostBySlug(ctx context.Context, slug string) (*blog.Post, error)
	ListBlogPosts(ctx context.Context, page Page) ([]*blog.Post, int, error)
	DeleteBlogPost(ctx context.Context, id string) error
}

type ReviewStorage interface {
	CreateReview(ctx context.Context, review *reviews.Review) error
	ListReviewsByWebsite(ctx context.Context, websiteID string, page Page) ([]*reviews.Review, int, error)
}

type StatsStorage interface {
	GetAdminStats(ctx context.Context) (*AdminStats, error)
}

type Storage interface {
	UserStorage
	OrderStorage
	FundRequestStorage
	WebsiteStorage
	BlogStorage
	ReviewStorage
	StatsStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}
