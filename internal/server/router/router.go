package router

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/postmarket/postmarket/internal/auth"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/handlers"
	"github.com/postmarket/postmarket/internal/storage"
)

type Options struct {
	log    *slog.Logger
	secret []byte
}

func NewRouter(store storage.Storage, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		secret: []byte(""),
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
	)

	h := handlers.NewHandlers(store,
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
	)

	r.Get("/ping", h.Ping)

	// Public surface.
	r.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.UserRegister)
		r.Post("/api/user/login", h.UserLogin)
		r.Get("/api/websites", h.ListWebsites)
		r.Get("/api/websites/{id}/reviews", h.ListWebsiteReviews)
		r.Get("/api/blog", h.ListBlogPosts)
		r.Get("/api/blog/{slug}", h.GetBlogPost)
	})

	// Authenticated user surface.
	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/user/me", h.GetMe)
		r.Get("/api/user/balance", h.GetUserBalance)
		r.Get("/api/user/orders", h.GetUserOrders)
		r.Post("/api/user/orders", h.CreateUserOrder)
		r.Patch("/api/user/orders/{id}/submission", h.UpdateOrderSubmission)
		r.Get("/api/user/fundrequests", h.GetUserFundRequests)
		r.Post("/api/user/fundrequests", h.CreateFundRequest)
		r.Post("/api/websites/{id}/reviews", h.CreateWebsiteReview)
	})

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
			AdminOnly,
		)

		r.Get("/api/admin/users", h.ListUsers)
		r.Patch("/api/admin/users/{id}/status", h.UpdateUserStatus)
		r.Get("/api/admin/orders", h.ListAllOrders)
		r.Patch("/api/admin/orders/{id}/status", h.UpdateOrderStatus)
		r.Patch("/api/admin/orders/{id}/complete", h.CompleteOrder)
		r.Get("/api/admin/fundrequests", h.ListAllFundRequests)
		r.Patch("/api/admin/fundrequests/{id}/approve", h.ApproveFundRequest)
		r.Patch("/api/admin/fundrequests/{id}/reject", h.RejectFundRequest)
		r.Post("/api/websites", h.CreateWebsite)
		r.Patch("/api/admin/websites/{id}/status", h.UpdateWebsiteStatus)
		r.Delete("/api/admin/websites/{id}", h.DeleteWebsite)
		r.Post("/api/blog", h.CreateBlogPost)
		r.Delete("/api/admin/blog/{id}", h.DeleteBlogPost)
		r.Get("/api/admin/stats", h.GetAdminStats)
	})

	return r
}

// AdminOnly rejects requests whose JWT role claim is not admin.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		role, _ := claims["role"].(string)
		if role != string(users.RoleAdmin) {
			http.Error(w, errmsg.ErrForbidden.Error(), errmsg.ErrForbidden.Code)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}
