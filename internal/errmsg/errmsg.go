package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)

	ErrForbidden = NewHTTPError(
		http.StatusForbidden,
		errors.New("admin role required"),
	)
)

var (
	ErrUserAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("user already exists"),
	)

	ErrUserNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("user not found"),
	)

	ErrUserCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("user credentials invalid"),
	)
)

var (
	ErrOrderNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("order not found"),
	)

	ErrOrderStateInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("order state does not allow this operation"),
	)
)

var (
	ErrFundRequestNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("fund request not found"),
	)

	ErrFundRequestStateInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("fund request state does not allow this operation"),
	)
)

var (
	ErrWebsiteNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("website not found"),
	)

	ErrBlogPostNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("blog post not found"),
	)

	ErrBlogPostAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("blog post already exists"),
	)
)
