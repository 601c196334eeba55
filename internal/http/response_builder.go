// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto status codes and error bodies.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tazzio/internal/budget"
	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/session"
	"tazzio/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error codes returned to clients.
const (
	CodeBadRequest         = "bad_request"
	CodeValidation         = "validation"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNotAuthenticated   = "not_authenticated"
	CodeEmailTaken         = "email_taken"
	CodeConflict           = "conflict"
	CodeStaleSession       = "stale_session"
	CodeNotFound           = "not_found"
	CodeRemote             = "remote_unavailable"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal"
)

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// UnauthorizedError creates a 401 response asking for a bearer token.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, CodeNotAuthenticated, message).
		Header("WWW-Authenticate", `Bearer realm="tazzio"`)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, "internal error")
}

// FromError maps an error returned by the session or budget layers to a
// response. Warnings with a translation key are localised with tr, which
// may be nil.
func FromError(err error, tr func(key string) string) *JSONResponseBuilder {
	var (
		verr *core.ValidationError
		rerr *budget.RemoteError
		aerr *session.AuthError
	)

	switch {
	case errors.As(err, &verr):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: ErrorDetail{Code: CodeValidation, Message: verr.Reason, Field: verr.Field}})
	case errors.Is(err, budget.ErrLastBuyer), errors.Is(err, budget.ErrCategoryInUse):
		msg := err.Error()
		if key := budget.WarningKey(err); key != "" && tr != nil {
			msg = tr(key)
		}
		return ErrorResponse(http.StatusConflict, CodeConflict, msg)
	case errors.Is(err, budget.ErrStaleSession):
		return ErrorResponse(http.StatusConflict, CodeStaleSession, "session changed, retry the request")
	}

	switch session.KindOf(err) {
	case session.KindInvalidCredentials:
		return ErrorResponse(http.StatusUnauthorized, CodeInvalidCredentials, session.ErrInvalidCredentials.Error())
	case session.KindNotAuthenticated:
		return UnauthorizedError(session.ErrNotAuthenticated.Error())
	case session.KindEmailTaken:
		return ErrorResponse(http.StatusConflict, CodeEmailTaken, store.ErrEmailTaken.Error())
	case session.KindValidation:
		msg := "invalid request"
		if errors.Is(err, store.ErrInvalidToken) {
			msg = store.ErrInvalidToken.Error()
		}
		return ErrorResponse(http.StatusUnprocessableEntity, CodeValidation, msg)
	}

	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return UnauthorizedError(session.ErrNotAuthenticated.Error())
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.As(err, &rerr), errors.As(err, &aerr):
		return ErrorResponse(http.StatusBadGateway, CodeRemote, "data store unavailable")
	}
	return InternalServerError()
}

// writeError logs err at a level matching its status and writes the
// mapped response.
func writeError(w http.ResponseWriter, r *http.Request, err error, tr func(string) string) {
	b := FromError(err, tr)
	logger := log.FromContext(r.Context())
	if b.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, b.statusCode)
	}
	b.Write(w)
}
