package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/models"
	"github.com/postmarket/postmarket/internal/storage"
)

func orderResponse(ord *orders.Order) models.OrderResponse {
	completion := ord.Completion()

	return models.OrderResponse{
		ID:                ord.ID(),
		UserID:            ord.UserID(),
		ItemName:          ord.ItemName(),
		Price:             ord.Price().InexactFloat64(),
		Status:            ord.Status(),
		CompletionMessage: completion.Message,
		CompletionLink:    completion.Link,
		CompletedAt:       formatTime(completion.CompletedAt),
		CreatedAt:         formatTime(ord.CreatedAt()),
	}
}

// orderStatusFilter parses the optional ?status= query parameter.
func orderStatusFilter(r *http.Request) (orders.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}

	return orders.ParseStatus(raw)
}

func (h *Handlers) CreateUserOrder(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var payload models.OrderCreateRequest

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

	order, err := orders.CreateOrder(ident.UserID, payload.ItemName, payload.Price)
	if err != nil {
		h.log.Error("orders.CreateOrder()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateOrder(r.Context(), order); err != nil {
		h.log.Error("storage.CreateOrder()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, orderResponse(order))
}

func (h *Handlers) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	status, err := orderStatusFilter(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	page := parsePage(r)

	bOrders, total, err := h.storage.ListOrders(r.Context(), storage.OrderFilter{
		UserID: ident.UserID,
		Status: status,
	}, page)
	if err != nil {
		h.log.Error("storage.ListOrders()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.OrderResponse, 0, len(bOrders))
	for _, ord := range bOrders {
		resp = append(resp, orderResponse(ord))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) UpdateOrderSubmission(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var payload models.OrderSubmissionRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	orderID := chi.URLParam(r, "id")

	submission := orders.Submission{
		ArticleText:    payload.ArticleText,
		AttachmentName: payload.AttachmentName,
		AttachmentData: payload.AttachmentData,
		Message:        payload.Message,
	}

	if err := h.storage.UpdateOrderSubmission(r.Context(), orderID, ident.UserID, submission); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			handleError(w, errmsg.ErrOrderNotFound)
		case errors.Is(err, storage.ErrOrderStateInvalid):
			handleError(w, errmsg.ErrOrderStateInvalid)
		default:
			h.log.Error("storage.UpdateOrderSubmission()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	status, err := orderStatusFilter(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	page := parsePage(r)

	bOrders, total, err := h.storage.ListOrders(r.Context(), storage.OrderFilter{Status: status}, page)
	if err != nil {
		h.log.Error("storage.ListOrders()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.OrderResponse, 0, len(bOrders))
	for _, ord := range bOrders {
		resp = append(resp, orderResponse(ord))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload models.OrderStatusRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	status, err := orders.ParseStatus(payload.Status)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	// Completion carries a payload and goes through its own endpoint.
	if status == orders.StatusCompleted {
		handleError(w, errmsg.ErrOrderStateInvalid)

		return
	}

	orderID := chi.URLParam(r, "id")

	if err := h.storage.TransitionOrder(r.Context(), orderID, status); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			handleError(w, errmsg.ErrOrderNotFound)
		case errors.Is(err, storage.ErrOrderStateInvalid):
			handleError(w, errmsg.ErrOrderStateInvalid)
		default:
			h.log.Error("storage.TransitionOrder()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	var payload models.OrderCompleteRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	orderID := chi.URLParam(r, "id")

	if err := h.storage.CompleteOrder(r.Context(), orderID, payload.Message, payload.Link, time.Now()); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			handleError(w, errmsg.ErrOrderNotFound)
		case errors.Is(err, storage.ErrOrderStateInvalid):
			handleError(w, errmsg.ErrOrderStateInvalid)
		default:
			h.log.Error("storage.CompleteOrder()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}
