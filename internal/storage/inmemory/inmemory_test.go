package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmarket/postmarket/internal/domain/blog"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/domain/reviews"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/postmarket/postmarket/internal/storage"
)

func newTestUser(t *testing.T, store *Storage, login string) *users.User {
	t.Helper()

	usr, err := users.CreateUser(login, "passwd")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), usr))

	return usr
}

func newTestFundRequest(t *testing.T, store *Storage, userID string, amount int64) *fundrequests.FundRequest {
	t.Helper()

	req, err := fundrequests.CreateFundRequest(userID, decimal.NewFromInt(amount))
	require.NoError(t, err)
	require.NoError(t, store.CreateFundRequest(context.Background(), req))

	return req
}

func TestCreateUserDuplicateLogin(t *testing.T) {
	store := NewStorage()

	newTestUser(t, store, "alice")

	dup, err := users.CreateUser("alice", "other")
	require.NoError(t, err)

	err = store.CreateUser(context.Background(), dup)
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestGetUserByLogin(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")

	got, err := store.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = store.GetUserByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestApproveFundRequest(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")
	req := newTestFundRequest(t, store, usr.ID, 150)

	require.NoError(t, store.ApproveFundRequest(ctx, req.ID(), "admin"))

	got, err := store.GetFundRequest(ctx, req.ID())
	require.NoError(t, err)
	assert.Equal(t, fundrequests.StatusPaid, got.Status())
	assert.Equal(t, "admin", got.ProcessedBy())

	owner, err := store.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, owner.Balance.Equal(decimal.NewFromInt(150)), "balance is %s", owner.Balance)
}

func TestApproveFundRequestTwice(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")
	req := newTestFundRequest(t, store, usr.ID, 100)

	require.NoError(t, store.ApproveFundRequest(ctx, req.ID(), "admin"))

	err := store.ApproveFundRequest(ctx, req.ID(), "admin")
	assert.ErrorIs(t, err, storage.ErrFundRequestStateInvalid)

	// The second attempt must not credit the balance again.
	owner, err := store.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, owner.Balance.Equal(decimal.NewFromInt(100)), "balance is %s", owner.Balance)
}

func TestApproveFundRequestConcurrent(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")
	req := newTestFundRequest(t, store, usr.ID, 100)

	const workers = 8

	errs := make(chan error, workers)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- store.ApproveFundRequest(ctx, req.ID(), "admin")
		}()
	}

	wg.Wait()
	close(errs)

	var succeeded int

	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, storage.ErrFundRequestStateInvalid)
		}
	}

	assert.Equal(t, 1, succeeded)

	owner, err := store.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, owner.Balance.Equal(decimal.NewFromInt(100)), "balance is %s", owner.Balance)
}

func TestApproveTwoFundRequestsConcurrent(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")
	first := newTestFundRequest(t, store, usr.ID, 100)
	second := newTestFundRequest(t, store, usr.ID, 250)

	var wg sync.WaitGroup

	for _, id := range []string{first.ID(), second.ID()} {
		id := id

		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, store.ApproveFundRequest(ctx, id, "admin"))
		}()
	}

	wg.Wait()

	owner, err := store.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, owner.Balance.Equal(decimal.NewFromInt(350)), "balance is %s", owner.Balance)
}

func TestRejectPaidFundRequest(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")
	req := newTestFundRequest(t, store, usr.ID, 100)

	require.NoError(t, store.ApproveFundRequest(ctx, req.ID(), "admin"))

	err := store.RejectFundRequest(ctx, req.ID(), "admin", "too late")
	assert.ErrorIs(t, err, storage.ErrFundRequestStateInvalid)
}

func TestMarkFundRequestInvoiced(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")
	req := newTestFundRequest(t, store, usr.ID, 100)

	require.NoError(t, store.MarkFundRequestInvoiced(ctx, req.ID()))

	got, err := store.GetFundRequest(ctx, req.ID())
	require.NoError(t, err)
	assert.Equal(t, fundrequests.StatusInvoiceSent, got.Status())

	// An invoiced request can still be approved.
	require.NoError(t, store.ApproveFundRequest(ctx, req.ID(), "admin"))

	// But not re-invoiced afterwards.
	err = store.MarkFundRequestInvoiced(ctx, req.ID())
	assert.ErrorIs(t, err, storage.ErrFundRequestStateInvalid)
}

func TestCreateFundRequestUnknownUser(t *testing.T) {
	store := NewStorage()

	req, err := fundrequests.CreateFundRequest("no-such-user", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = store.CreateFundRequest(context.Background(), req)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestGetFundRequestsByStatus(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")

	pending := newTestFundRequest(t, store, usr.ID, 10)
	invoiced := newTestFundRequest(t, store, usr.ID, 20)
	paid := newTestFundRequest(t, store, usr.ID, 30)

	require.NoError(t, store.MarkFundRequestInvoiced(ctx, invoiced.ID()))
	require.NoError(t, store.ApproveFundRequest(ctx, paid.ID(), "admin"))

	got, err := store.GetFundRequestsByStatus(ctx, fundrequests.StatusPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID(), got[0].ID())

	got, err = store.GetFundRequestsByStatus(ctx, fundrequests.StatusPending, fundrequests.StatusInvoiceSent)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTransitionOrder(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")

	ord, err := orders.CreateOrder(usr.ID, "guest post", decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, ord))

	// pending -> completed skips processing and must fail.
	err = store.TransitionOrder(ctx, ord.ID(), orders.StatusCompleted)
	assert.ErrorIs(t, err, storage.ErrOrderStateInvalid)

	require.NoError(t, store.TransitionOrder(ctx, ord.ID(), orders.StatusProcessing))
	require.NoError(t, store.CompleteOrder(ctx, ord.ID(), "published", "https://example.com/post", ord.CreatedAt()))

	got, err := store.GetOrder(ctx, ord.ID())
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, got.Status())
	assert.Equal(t, "https://example.com/post", got.Completion().Link)

	// Completed is terminal.
	err = store.TransitionOrder(ctx, ord.ID(), orders.StatusFailed)
	assert.ErrorIs(t, err, storage.ErrOrderStateInvalid)

	err = store.TransitionOrder(ctx, "missing", orders.StatusProcessing)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestUpdateOrderSubmission(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")

	ord, err := orders.CreateOrder(usr.ID, "guest post", decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, ord))

	submission := orders.Submission{ArticleText: "draft", Message: "please review"}

	require.NoError(t, store.UpdateOrderSubmission(ctx, ord.ID(), usr.ID, submission))

	// Another user's order looks like it does not exist.
	err = store.UpdateOrderSubmission(ctx, ord.ID(), "other-user", submission)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)

	require.NoError(t, store.TransitionOrder(ctx, ord.ID(), orders.StatusProcessing))
	require.NoError(t, store.CompleteOrder(ctx, ord.ID(), "", "", ord.CreatedAt()))

	err = store.UpdateOrderSubmission(ctx, ord.ID(), usr.ID, submission)
	assert.ErrorIs(t, err, storage.ErrOrderStateInvalid)
}

func TestListOrdersFilter(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	alice := newTestUser(t, store, "alice")
	bob := newTestUser(t, store, "bob")

	for _, userID := range []string{alice.ID, alice.ID, bob.ID} {
		ord, err := orders.CreateOrder(userID, "guest post", decimal.NewFromInt(50))
		require.NoError(t, err)
		require.NoError(t, store.CreateOrder(ctx, ord))
	}

	page := storage.Page{Page: 1, Limit: 10}

	got, total, err := store.ListOrders(ctx, storage.OrderFilter{UserID: alice.ID}, page)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, got, 2)

	got, total, err = store.ListOrders(ctx, storage.OrderFilter{Status: orders.StatusProcessing}, page)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}

func TestListOrdersPagination(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr := newTestUser(t, store, "alice")

	for i := 0; i < 5; i++ {
		ord, err := orders.CreateOrder(usr.ID, "guest post", decimal.NewFromInt(50))
		require.NoError(t, err)
		require.NoError(t, store.CreateOrder(ctx, ord))
	}

	got, total, err := store.ListOrders(ctx, storage.OrderFilter{}, storage.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, got, 2)

	got, total, err = store.ListOrders(ctx, storage.OrderFilter{}, storage.Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, got, 1)

	got, total, err = store.ListOrders(ctx, storage.OrderFilter{}, storage.Page{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, got)
}

func TestWebsiteLifecycle(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	site, err := websites.NewWebsite("example.com", "tech", decimal.NewFromInt(200), 55, 120000)
	require.NoError(t, err)
	require.NoError(t, store.CreateWebsite(ctx, site))

	page := storage.Page{Page: 1, Limit: 10}

	// New sites are pending, so the active-only view is empty.
	got, total, err := store.ListWebsites(ctx, storage.WebsiteFilter{Status: websites.StatusActive}, page)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)

	require.NoError(t, store.UpdateWebsiteStatus(ctx, site.ID, websites.StatusActive))

	got, total, err = store.ListWebsites(ctx, storage.WebsiteFilter{Status: websites.StatusActive}, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, site.ID, got[0].ID)

	require.NoError(t, store.DeleteWebsite(ctx, site.ID))

	_, err = store.GetWebsite(ctx, site.ID)
	assert.ErrorIs(t, err, storage.ErrWebsiteNotFound)
}

func TestDeleteWebsiteDropsReviews(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	site, err := websites.NewWebsite("example.com", "tech", decimal.NewFromInt(200), 55, 120000)
	require.NoError(t, err)
	require.NoError(t, store.CreateWebsite(ctx, site))

	review, err := reviews.NewReview(site.ID, "user-1", 5, "great outreach")
	require.NoError(t, err)
	require.NoError(t, store.CreateReview(ctx, review))

	require.NoError(t, store.DeleteWebsite(ctx, site.ID))

	got, total, err := store.ListReviewsByWebsite(ctx, site.ID, storage.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}

func TestCreateReviewUnknownWebsite(t *testing.T) {
	store := NewStorage()

	review, err := reviews.NewReview("no-such-site", "user-1", 4, "ok")
	require.NoError(t, err)

	err = store.CreateReview(context.Background(), review)
	assert.ErrorIs(t, err, storage.ErrWebsiteNotFound)
}

func TestBlogPosts(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	published, err := blog.NewPost("Published Post", "body", "alice", true)
	require.NoError(t, err)
	require.NoError(t, store.CreateBlogPost(ctx, published))

	draft, err := blog.NewPost("Draft Post", "body", "alice", false)
	require.NoError(t, err)
	require.NoError(t, store.CreateBlogPost(ctx, draft))

	// Duplicate slug.
	dup, err := blog.NewPost("Published Post", "other body", "bob", true)
	require.NoError(t, err)
	assert.ErrorIs(t, store.CreateBlogPost(ctx, dup), storage.ErrBlogPostAlreadyExists)

	got, total, err := store.ListBlogPosts(ctx, storage.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, published.ID, got[0].ID)

	bySlug, err := store.GetBlogPostBySlug(ctx, "published-post")
	require.NoError(t, err)
	assert.Equal(t, published.ID, bySlug.ID)

	require.NoError(t, store.DeleteBlogPost(ctx, draft.ID))

	_, err = store.GetBlogPostBySlug(ctx, "draft-post")
	assert.ErrorIs(t, err, storage.ErrBlogPostNotFound)
}

func TestGetAdminStats(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	alice := newTestUser(t, store, "alice")
	bob := newTestUser(t, store, "bob")
	require.NoError(t, store.UpdateUserStatus(ctx, bob.ID, users.StatusSuspended))

	site, err := websites.NewWebsite("example.com", "tech", decimal.NewFromInt(200), 55, 120000)
	require.NoError(t, err)
	require.NoError(t, store.CreateWebsite(ctx, site))
	require.NoError(t, store.UpdateWebsiteStatus(ctx, site.ID, websites.StatusActive))

	completed, err := orders.CreateOrder(alice.ID, "guest post", decimal.NewFromInt(75))
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, completed))
	require.NoError(t, store.TransitionOrder(ctx, completed.ID(), orders.StatusProcessing))
	require.NoError(t, store.CompleteOrder(ctx, completed.ID(), "", "", completed.CreatedAt()))

	pending, err := orders.CreateOrder(alice.ID, "guest post", decimal.NewFromInt(40))
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, pending))

	paidReq := newTestFundRequest(t, store, alice.ID, 300)
	require.NoError(t, store.ApproveFundRequest(ctx, paidReq.ID(), "admin"))
	newTestFundRequest(t, store, alice.ID, 50)

	stats, err := store.GetAdminStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 1, stats.TotalWebsites)
	assert.Equal(t, 1, stats.ActiveWebsites)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.OrdersByStatus[orders.StatusCompleted])
	assert.Equal(t, 1, stats.OrdersByStatus[orders.StatusPending])
	assert.True(t, stats.CompletedRevenue.Equal(decimal.NewFromInt(75)), "revenue is %s", stats.CompletedRevenue)
	assert.Equal(t, 1, stats.PendingFundRequests)
	assert.True(t, stats.PaidFundsTotal.Equal(decimal.NewFromInt(300)), "paid total is %s", stats.PaidFundsTotal)
	assert.Len(t, stats.RecentOrders, 2)
}
