package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/models"
	"github.com/postmarket/postmarket/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

func userResponse(usr *users.User) models.UserResponse {
	return models.UserResponse{
		ID:           usr.ID,
		Login:        usr.Login,
		Role:         usr.Role,
		Status:       string(usr.Status),
		Balance:      usr.Balance.InexactFloat64(),
		RegisteredAt: formatTime(usr.RegisteredAt),
	}
}

func (h *Handlers) UserRegister(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	defer r.Body.Close()

	user, err := users.CreateUser(userPayload.Login, userPayload.Password)
	if err != nil {
		h.log.Error("users.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.log.Error("storage.CreateUser()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserAlreadyExists)

			return
		}

		h.log.Error("storage.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.ID, user.Login, user.Role)
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) UserLogin(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	user, err := h.storage.GetUserByLogin(r.Context(), userPayload.Login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.log.Error("storage.GetUserByLogin()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.GetUserByLogin()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(userPayload.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserCredentialsInvalid)

			return
		}

		h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.ID, user.Login, user.Role)
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	user, err := h.storage.GetUserByID(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.GetUserByID()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, userResponse(user))
}

func (h *Handlers) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromContext(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	user, err := h.storage.GetUserByID(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.GetUserByID()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.UserBalanceResponse{
		Balance: user.Balance.InexactFloat64(),
	})
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	bUsers, total, err := h.storage.ListUsers(r.Context(), page)
	if err != nil {
		h.log.Error("storage.ListUsers()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.UserResponse, 0, len(bUsers))
	for _, usr := range bUsers {
		resp = append(resp, userResponse(usr))
	}

	handleListResponse(w, resp, page, total)
}

func (h *Handlers) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	var payload models.UserStatusRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	status, err := users.ParseStatus(payload.Status)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	userID := chi.URLParam(r, "id")

	if err := h.storage.UpdateUserStatus(r.Context(), userID, status); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.UpdateUserStatus()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}
