package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/models"
	"github.com/postmarket/postmarket/internal/storage"
)

func fundRequestResponse(req *fundrequests.FundRequest) models.FundRequestResponse {
	return models.FundRequestResponse{
		ID:          req.ID(),
		UserID:      req.UserID(),
		Amount:      req.Amount().InexactFloat64(),
		Status:      req.Status(),
		AdminNotes:  req.AdminNotes(),
		ProcessedBy: req.ProcessedBy(),
		ProcessedAt: formatTime(req.ProcessedAt()),
		CreatedAt:   formatTime(req.CreatedAt()),
	}
}

func fundRequestStatusFilter(r *http.Request) (fundrequests.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}

	return fundrequests.ParseStatus(raw)
}

func (h *Handlers) CreateFundRequest(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var payload models.FundRequestCreateRequest

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

	req, err := fundrequests.CreateFundRequest(ident.UserID, payload.Amount)
	if err != nil {
		h.log.Error("fundrequests.CreateFundRequest()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateFundRequest(r.Context(), req); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.CreateFundRequest()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, fundRequestResponse(req))
}

func (h *Handlers) GetUserFundRequests(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	status, err := fundRequestStatusFilter(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	page := parsePage(r)

	bReqs, total, err := h.storage.ListFundRequests(r.Context(), storage.FundRequestFilter{
		UserID: ident.UserID,
		Status: status,
	}, page)
	if err != nil {
		h.log.Error("storage.ListFundRequests()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.FundRequestResponse, 0, len(bReqs))
	for _, req := range bReqs {
		resp = append(resp, fundRequestResponse(req))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) ListAllFundRequests(w http.ResponseWriter, r *http.Request) {
	status, err := fundRequestStatusFilter(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	page := parsePage(r)

	bReqs, total, err := h.storage.ListFundRequests(r.Context(), storage.FundRequestFilter{Status: status}, page)
	if err != nil {
		h.log.Error("storage.ListFundRequests()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.FundRequestResponse, 0, len(bReqs))
	for _, req := range bReqs {
		resp = append(resp, fundRequestResponse(req))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) ApproveFundRequest(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	requestID := chi.URLParam(r, "id")

	if err := h.storage.ApproveFundRequest(r.Context(), requestID, ident.Login); err != nil {
		switch {
		case errors.Is(err, storage.ErrFundRequestNotFound):
			handleError(w, errmsg.ErrFundRequestNotFound)
		case errors.Is(err, storage.ErrFundRequestStateInvalid):
			handleError(w, errmsg.ErrFundRequestStateInvalid)
		case errors.Is(err, storage.ErrUserNotFound):
			handleError(w, errmsg.ErrUserNotFound)
		default:
			h.log.Error("storage.ApproveFundRequest()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) RejectFundRequest(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var payload models.FundRequestRejectRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	requestID := chi.URLParam(r, "id")

	if err := h.storage.RejectFundRequest(r.Context(), requestID, ident.Login, payload.AdminNotes); err != nil {
		switch {
		case errors.Is(err, storage.ErrFundRequestNotFound):
			handleError(w, errmsg.ErrFundRequestNotFound)
		case errors.Is(err, storage.ErrFundRequestStateInvalid):
			handleError(w, errmsg.ErrFundRequestStateInvalid)
		default:
			h.log.Error("storage.RejectFundRequest()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}
