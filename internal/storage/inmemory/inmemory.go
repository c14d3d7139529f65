package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/postmarket/postmarket/internal/domain/blog"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/domain/reviews"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/shopspring/decimal"
)

var _ storage.Storage = (*Storage)(nil)

type UserStore struct {
	users map[string]*users.User // keyed by user ID
	mu    sync.Mutex
}

type OrderStore struct {
	orders map[string]*orders.Order
	mu     sync.Mutex
}

type FundRequestStore struct {
	requests map[string]*fundrequests.FundRequest
	mu       sync.Mutex
}

type WebsiteStore struct {
	websites map[string]*websites.Website
	mu       sync.Mutex
}

type BlogStore struct {
	posts map[string]*blog.Post
	mu    sync.Mutex
}

type ReviewStore struct {
	reviews map[string][]*reviews.Review // keyed by website ID
	mu      sync.Mutex
}

type Storage struct {
	UserStore        UserStore
	OrderStore       OrderStore
	FundRequestStore FundRequestStore
	WebsiteStore     WebsiteStore
	BlogStore        BlogStore
	ReviewStore      ReviewStore
}

func NewStorage() *Storage {
	return &Storage{
		UserStore: UserStore{
			users: make(map[string]*users.User),
		},
		OrderStore: OrderStore{
			orders: make(map[string]*orders.Order),
		},
		FundRequestStore: FundRequestStore{
			requests: make(map[string]*fundrequests.FundRequest),
		},
		WebsiteStore: WebsiteStore{
			websites: make(map[string]*websites.Website),
		},
		BlogStore: BlogStore{
			posts: make(map[string]*blog.Post),
		},
		ReviewStore: ReviewStore{
			reviews: make(map[string][]*reviews.Review),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

// paginate slices out one page and returns the total size.
func paginate[T any](items []T, page storage.Page) ([]T, int) {
	total := len(items)

	start := page.Offset()
	if start >= total {
		return []T{}, total
	}

	end := start + page.Limit
	if end > total {
		end = total
	}

	return items[start:end], total
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	for _, existing := range s.UserStore.users {
		if existing.Login == usr.Login {
			return storage.ErrUserAlreadyExists
		}
	}

	s.UserStore.users[usr.ID] = usr

	return nil
}

func (s *Storage) GetUserByLogin(_ context.Context, login string) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	for _, usr := range s.UserStore.users {
		if usr.Login == login {
			return usr, nil
		}
	}

	return nil, storage.ErrUserNotFound
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	usr, ok := s.UserStore.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return usr, nil
}

func (s *Storage) ListUsers(_ context.Context, page storage.Page) ([]*users.User, int, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	all := make([]*users.User, 0, len(s.UserStore.users))
	for _, usr := range s.UserStore.users {
		all = append(all, usr)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].RegisteredAt.After(all[j].RegisteredAt)
	})

	paged, total := paginate(all, page)

	return paged, total, nil
}

func (s *Storage) UpdateUserStatus(_ context.Context, id string, status users.Status) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	usr, ok := s.UserStore.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	usr.Status = status

	return nil
}

func (s *Storage) CreateOrder(_ context.Context, ord *orders.Order) error {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	if _, ok := s.OrderStore.orders[ord.ID()]; ok {
		return storage.ErrOrderAlreadyExists
	}

	s.OrderStore.orders[ord.ID()] = ord

	return nil
}

func (s *Storage) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}

	return ord, nil
}

func (s *Storage) ListOrders(_ context.Context, filter storage.OrderFilter, page storage.Page) ([]*orders.Order, int, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	matched := make([]*orders.Order, 0)

	for _, ord := range s.OrderStore.orders {
		if filter.UserID != "" && ord.UserID() != filter.UserID {
			continue
		}

		if filter.Status != "" && ord.Status() != filter.Status {
			continue
		}

		matched = append(matched, ord)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})

	paged, total := paginate(matched, page)

	return paged, total, nil
}

func (s *Storage) TransitionOrder(_ context.Context, id string, to orders.Status) error {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}

	if err := ord.SetStatus(to); err != nil {
		return storage.ErrOrderStateInvalid
	}

	return nil
}

func (s *Storage) CompleteOrder(_ context.Context, id, message, link string, _ time.Time) error {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}

	if err := ord.Complete(message, link); err != nil {
		return storage.ErrOrderStateInvalid
	}

	return nil
}

func (s *Storage) UpdateOrderSubmission(_ context.Context, id, userID string, submission orders.Submission) error {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}

	if ord.UserID() != userID {
		return storage.ErrOrderNotFound
	}

	if err := ord.SetSubmission(submission); err != nil {
		return storage.ErrOrderStateInvalid
	}

	return nil
}

func (s *Storage) CreateFundRequest(_ context.Context, req *fundrequests.FundRequest) error {
	s.UserStore.mu.Lock()
	_, userExists := s.UserStore.users[req.UserID()]
	s.UserStore.mu.Unlock()

	if !userExists {
		return storage.ErrUserNotFound
	}

	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	s.FundRequestStore.requests[req.ID()] = req

	return nil
}

func (s *Storage) GetFundRequest(_ context.Context, id string) (*fundrequests.FundRequest, error) {
	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	req, ok := s.FundRequestStore.requests[id]
	if !ok {
		return nil, storage.ErrFundRequestNotFound
	}

	return req, nil
}

func (s *Storage) ListFundRequests(_ context.Context, filter storage.FundRequestFilter, page storage.Page) ([]*fundrequests.FundRequest, int, error) {
	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	matched := make([]*fundrequests.FundRequest, 0)

	for _, req := range s.FundRequestStore.requests {
		if filter.UserID != "" && req.UserID() != filter.UserID {
			continue
		}

		if filter.Status != "" && req.Status() != filter.Status {
			continue
		}

		matched = append(matched, req)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})

	paged, total := paginate(matched, page)

	return paged, total, nil
}

func (s *Storage) GetFundRequestsByStatus(_ context.Context, statuses ...fundrequests.Status) ([]*fundrequests.FundRequest, error) {
	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	matched := make([]*fundrequests.FundRequest, 0)

	for _, req := range s.FundRequestStore.requests {
		if len(statuses) == 0 {
			matched = append(matched, req)

			continue
		}

		for _, status := range statuses {
			if req.Status() == status {
				matched = append(matched, req)

				break
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})

	return matched, nil
}

// ApproveFundRequest holds both store locks across the status check and the
// balance credit, so two concurrent approvals of the same request credit the
// balance exactly once.
func (s *Storage) ApproveFundRequest(_ context.Context, id, processedBy string) error {
	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	req, ok := s.FundRequestStore.requests[id]
	if !ok {
		return storage.ErrFundRequestNotFound
	}

	usr, ok := s.UserStore.users[req.UserID()]
	if !ok {
		// Refuse to mark the request paid without the balance credit.
		return storage.ErrUserNotFound
	}

	if err := req.Approve(processedBy); err != nil {
		if errors.Is(err, fundrequests.ErrTransitionNotAllowed) {
			return storage.ErrFundRequestStateInvalid
		}

		return err
	}

	usr.Balance = usr.Balance.Add(req.Amount())

	return nil
}

func (s *Storage) RejectFundRequest(_ context.Context, id, processedBy, notes string) error {
	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	req, ok := s.FundRequestStore.requests[id]
	if !ok {
		return storage.ErrFundRequestNotFound
	}

	if err := req.Reject(processedBy, notes); err != nil {
		if errors.Is(err, fundrequests.ErrTransitionNotAllowed) {
			return storage.ErrFundRequestStateInvalid
		}

		return err
	}

	return nil
}

func (s *Storage) MarkFundRequestInvoiced(_ context.Context, id string) error {
	s.FundRequestStore.mu.Lock()
	defer s.FundRequestStore.mu.Unlock()

	req, ok := s.FundRequestStore.requests[id]
	if !ok {
		return storage.ErrFundRequestNotFound
	}

	if err := req.SetStatus(fundrequests.StatusInvoiceSent); err != nil {
		return storage.ErrFundRequestStateInvalid
	}

	return nil
}

func (s *Storage) CreateWebsite(_ context.Context, site *websites.Website) error {
	s.WebsiteStore.mu.Lock()
	defer s.WebsiteStore.mu.Unlock()

	s.WebsiteStore.websites[site.ID] = site

	return nil
}

func (s *Storage) GetWebsite(_ context.Context, id string) (*websites.Website, error) {
	s.WebsiteStore.mu.Lock()
	defer s.WebsiteStore.mu.Unlock()

	site, ok := s.WebsiteStore.websites[id]
	if !ok {
		return nil, storage.ErrWebsiteNotFound
	}

	return site, nil
}

func (s *Storage) ListWebsites(_ context.Context, filter storage.WebsiteFilter, page storage.Page) ([]*websites.Website, int, error) {
	s.WebsiteStore.mu.Lock()
	defer s.WebsiteStore.mu.Unlock()

	matched := make([]*websites.Website, 0)

	for _, site := range s.WebsiteStore.websites {
		if filter.Category != "" && site.Category != filter.Category {
			continue
		}

		if filter.Status != "" && site.Status != filter.Status {
			continue
		}

		matched = append(matched, site)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	paged, total := paginate(matched, page)

	return paged, total, nil
}

func (s *Storage) UpdateWebsiteStatus(_ context.Context, id string, status websites.Status) error {
	s.WebsiteStore.mu.Lock()
	defer s.WebsiteStore.mu.Unlock()

	site, ok := s.WebsiteStore.websites[id]
	if !ok {
		return storage.ErrWebsiteNotFound
	}

	site.Status = status

	return nil
}

func (s *Storage) DeleteWebsite(_ context.Context, id string) error {
	s.WebsiteStore.mu.Lock()
	defer s.WebsiteStore.mu.Unlock()

	if _, ok := s.WebsiteStore.websites[id]; !ok {
		return storage.ErrWebsiteNotFound
	}

	delete(s.WebsiteStore.websites, id)

	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	delete(s.ReviewStore.reviews, id)

	return nil
}

func (s *Storage) CreateBlogPost(_ context.Context, post *blog.Post) error {
	s.BlogStore.mu.Lock()
	defer s.BlogStore.mu.Unlock()

	for _, existing := range s.BlogStore.posts {
		if existing.Slug == post.Slug {
			return storage.ErrBlogPostAlreadyExists
		}
	}

	s.BlogStore.posts[post.ID] = post

	return nil
}

func (s *Storage) GetBlogPostBySlug(_ context.Context, slug string) (*blog.Post, error) {
	s.BlogStore.mu.Lock()
	defer s.BlogStore.mu.Unlock()

	for _, post := range s.BlogStore.posts {
		if post.Slug == slug {
			return post, nil
		}
	}

	return nil, storage.ErrBlogPostNotFound
}

func (s *Storage) ListBlogPosts(_ context.Context, page storage.Page) ([]*blog.Post, int, error) {
	s.BlogStore.mu.Lock()
	defer s.BlogStore.mu.Unlock()

	published := make([]*blog.Post, 0)

	for _, post := range s.BlogStore.posts {
		if post.Published {
			published = append(published, post)
		}
	}

	sort.Slice(published, func(i, j int) bool {
		return published[i].CreatedAt.After(published[j].CreatedAt)
	})

	paged, total := paginate(published, page)

	return paged, total, nil
}

func (s *Storage) DeleteBlogPost(_ context.Context, id string) error {
	s.BlogStore.mu.Lock()
	defer s.BlogStore.mu.Unlock()

	if _, ok := s.BlogStore.posts[id]; !ok {
		return storage.ErrBlogPostNotFound
	}

	delete(s.BlogStore.posts, id)

	return nil
}

func (s *Storage) CreateReview(_ context.Context, review *reviews.Review) error {
	s.WebsiteStore.mu.Lock()
	_, siteExists := s.WebsiteStore.websites[review.WebsiteID]
	s.WebsiteStore.mu.Unlock()

	if !siteExists {
		return storage.ErrWebsiteNotFound
	}

	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	s.ReviewStore.reviews[review.WebsiteID] = append(s.ReviewStore.reviews[review.WebsiteID], review)

	return nil
}

func (s *Storage) ListReviewsByWebsite(_ context.Context, websiteID string, page storage.Page) ([]*reviews.Review, int, error) {
	s.ReviewStore.mu.Lock()
	defer s.ReviewStore.mu.Unlock()

	all := make([]*reviews.Review, len(s.ReviewStore.reviews[websiteID]))
	copy(all, s.ReviewStore.reviews[websiteID])

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	paged, total := paginate(all, page)

	return paged, total, nil
}

func (s *Storage) GetAdminStats(_ context.Context) (*storage.AdminStats, error) {
	stats := &storage.AdminStats{
		OrdersByStatus:   make(map[orders.Status]int),
		CompletedRevenue: decimal.Zero,
		PaidFundsTotal:   decimal.Zero,
	}

	s.UserStore.mu.Lock()
	for _, usr := range s.UserStore.users {
		stats.TotalUsers++

		if usr.Status == users.StatusActive {
			stats.ActiveUsers++
		}
	}
	s.UserStore.mu.Unlock()

	s.WebsiteStore.mu.Lock()
	for _, site := range s.WebsiteStore.websites {
		stats.TotalWebsites++

		if site.Status == websites.StatusActive {
			stats.ActiveWebsites++
		}
	}
	s.WebsiteStore.mu.Unlock()

	s.OrderStore.mu.Lock()

	all := make([]*orders.Order, 0, len(s.OrderStore.orders))

	for _, ord := range s.OrderStore.orders {
		stats.TotalOrders++
		stats.OrdersByStatus[ord.Status()]++

		if ord.Status() == orders.StatusCompleted {
			stats.CompletedRevenue = stats.CompletedRevenue.Add(ord.Price())
		}

		all = append(all, ord)
	}
	s.OrderStore.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt().After(all[j].CreatedAt())
	})

	if len(all) > 5 {
		all = all[:5]
	}

	stats.RecentOrders = all

	s.FundRequestStore.mu.Lock()
	for _, req := range s.FundRequestStore.requests {
		switch req.Status() {
		case fundrequests.StatusPending:
			stats.PendingFundRequests++
		case fundrequests.StatusPaid:
			stats.PaidFundsTotal = stats.PaidFundsTotal.Add(req.Amount())
		}
	}
	s.FundRequestStore.mu.Unlock()

	return stats, nil
}
