package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/postmarket/postmarket/internal/auth"
	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/models"
	"github.com/postmarket/postmarket/internal/storage"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Handlers struct {
	storage storage.Storage
	log     *slog.Logger
	auth    *auth.JWTAuth
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage: store,
		log:     slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		auth:    auth.NewJWTAuth([]byte("")),
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleListResponse(w http.ResponseWriter, data any, page storage.Page, total int) {
	handleJSONResponse(w, http.StatusOK, models.ListResponse{
		Data:  data,
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
	})
}

// identity is the caller identity carried in the JWT claims.
type identity struct {
	UserID string
	Login  string
	Role   string
}

func (h *Handlers) identityFromContext(r *http.Request) (identity, error) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return identity{}, err
	}

	login, _ := claims["login"].(string)
	role, _ := claims["role"].(string)

	return identity{
		UserID: token.Subject(),
		Login:  login,
		Role:   role,
	}, nil
}

// parsePage reads the page/limit query parameters, clamping the limit.
func parsePage(r *http.Request) storage.Page {
	page := storage.Page{
		Page:  1,
		Limit: defaultPageLimit,
	}

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page.Page = p
	}

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		page.Limit = l

		if page.Limit > maxPageLimit {
			page.Limit = maxPageLimit
		}
	}

	return page
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}
