package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/postmarket/postmarket/internal/domain/blog"
	"github.com/postmarket/postmarket/internal/domain/reviews"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/models"
	"github.com/postmarket/postmarket/internal/storage"
)

func websiteResponse(site *websites.Website) models.WebsiteResponse {
	return models.WebsiteResponse{
		ID:              site.ID,
		Domain:          site.Domain,
		Category:        site.Category,
		Price:           site.Price.InexactFloat64(),
		DomainAuthority: site.DomainAuthority,
		MonthlyTraffic:  site.MonthlyTraffic,
		Status:          site.Status,
		CreatedAt:       formatTime(site.CreatedAt),
	}
}

func blogPostResponse(post *blog.Post) models.BlogPostResponse {
	return models.BlogPostResponse{
		ID:        post.ID,
		Title:     post.Title,
		Slug:      post.Slug,
		Body:      post.Body,
		Author:    post.Author,
		Published: post.Published,
		CreatedAt: formatTime(post.CreatedAt),
	}
}

func reviewResponse(review *reviews.Review) models.ReviewResponse {
	return models.ReviewResponse{
		ID:        review.ID,
		WebsiteID: review.WebsiteID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: formatTime(review.CreatedAt),
	}
}

// ListWebsites serves the public catalog: only active entries are shown.
func (h *Handlers) ListWebsites(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	bSites, total, err := h.storage.ListWebsites(r.Context(), storage.WebsiteFilter{
		Category: r.URL.Query().Get("category"),
		Status:   websites.StatusActive,
	}, page)
	if err != nil {
		h.log.Error("storage.ListWebsites()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.WebsiteResponse, 0, len(bSites))
	for _, site := range bSites {
		resp = append(resp, websiteResponse(site))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) CreateWebsite(w http.ResponseWriter, r *http.Request) {
	var payload models.WebsiteCreateRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	site, err := websites.NewWebsite(
		payload.Domain, payload.Category, payload.Price,
		payload.DomainAuthority, payload.MonthlyTraffic,
	)
	if err != nil {
		h.log.Error("websites.NewWebsite()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateWebsite(r.Context(), site); err != nil {
		h.log.Error("storage.CreateWebsite()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, websiteResponse(site))
}

func (h *Handlers) UpdateWebsiteStatus(w http.ResponseWriter, r *http.Request) {
	var payload models.WebsiteStatusRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	status, err := websites.ParseStatus(payload.Status)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	siteID := chi.URLParam(r, "id")

	if err := h.storage.UpdateWebsiteStatus(r.Context(), siteID, status); err != nil {
		if errors.Is(err, storage.ErrWebsiteNotFound) {
			handleError(w, errmsg.ErrWebsiteNotFound)

			return
		}

		h.log.Error("storage.UpdateWebsiteStatus()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) DeleteWebsite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	if err := h.storage.DeleteWebsite(r.Context(), siteID); err != nil {
		if errors.Is(err, storage.ErrWebsiteNotFound) {
			handleError(w, errmsg.ErrWebsiteNotFound)

			return
		}

		h.log.Error("storage.DeleteWebsite()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) ListBlogPosts(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	bPosts, total, err := h.storage.ListBlogPosts(r.Context(), page)
	if err != nil {
		h.log.Error("storage.ListBlogPosts()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.BlogPostResponse, 0, len(bPosts))
	for _, post := range bPosts {
		resp = append(resp, blogPostResponse(post))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) GetBlogPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.storage.GetBlogPostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrBlogPostNotFound) {
			handleError(w, errmsg.ErrBlogPostNotFound)

			return
		}

		h.log.Error("storage.GetBlogPostBySlug()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, blogPostResponse(post))
}

func (h *Handlers) CreateBlogPost(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var payload models.BlogPostCreateRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	post, err := blog.NewPost(payload.Title, payload.Body, ident.Login, payload.Published)
	if err != nil {
		h.log.Error("blog.NewPost()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateBlogPost(r.Context(), post); err != nil {
		if errors.Is(err, storage.ErrBlogPostAlreadyExists) {
			handleError(w, errmsg.ErrBlogPostAlreadyExists)

			return
		}

		h.log.Error("storage.CreateBlogPost()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, blogPostResponse(post))
}

func (h *Handlers) DeleteBlogPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	if err := h.storage.DeleteBlogPost(r.Context(), postID); err != nil {
		if errors.Is(err, storage.ErrBlogPostNotFound) {
			handleError(w, errmsg.ErrBlogPostNotFound)

			return
		}

		h.log.Error("storage.DeleteBlogPost()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) ListWebsiteReviews(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	page := parsePage(r)

	bReviews, total, err := h.storage.ListReviewsByWebsite(r.Context(), siteID, page)
	if err != nil {
		h.log.Error("storage.ListReviewsByWebsite()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.ReviewResponse, 0, len(bReviews))
	for _, review := range bReviews {
		resp = append(resp, reviewResponse(review))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) CreateWebsiteReview(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var payload models.ReviewCreateRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	siteID := chi.URLParam(r, "id")

	review, err := reviews.NewReview(siteID, ident.UserID, payload.Rating, payload.Comment)
	if err != nil {
		h.log.Error("reviews.NewReview()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateReview(r.Context(), review); err != nil {
		if errors.Is(err, storage.ErrWebsiteNotFound) {
			handleError(w, errmsg.ErrWebsiteNotFound)

			return
		}

		h.log.Error("storage.CreateReview()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, reviewResponse(review))
}
