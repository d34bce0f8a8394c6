// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the single
// place where domain errors become status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"compras/internal/auth"
	"compras/internal/core"
	"compras/internal/log"
	"compras/internal/services"
)

// errBadRequest marks malformed bodies and query strings.
var errBadRequest = errors.New("bad request")

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body with a 204 writes no payload.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string               `json:"error"`
	Field    string               `json:"field,omitempty"`
	Existing *core.PriceWithStore `json:"existing,omitempty"`
}

// ErrorResponse creates an error response with message.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}

func writeNoContent(w http.ResponseWriter) {
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// writeError maps err onto a status code and writes it. Unexpected errors are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *core.ValidationError
		conflict *services.PriceConflictError
	)

	switch {
	case errors.As(err, &verr):
		NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(ErrorBody{Error: verr.Message, Field: verr.Field}).Write(w)
	case errors.As(err, &conflict):
		NewResponse().Status(http.StatusConflict).
			JSON(ErrorBody{Error: core.ErrPriceExists.Error(), Existing: &conflict.Existing}).Write(w)
	case errors.Is(err, core.ErrNotFound):
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	case errors.Is(err, core.ErrDuplicateProduct),
		errors.Is(err, core.ErrDuplicateStore),
		errors.Is(err, core.ErrDuplicateItem),
		errors.Is(err, core.ErrPriceExists):
		ErrorResponse(http.StatusConflict, duplicateMessage(err)).Write(w)
	case errors.Is(err, errBadRequest):
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
	case errors.Is(err, auth.ErrUnauthorized):
		ErrorResponse(http.StatusUnauthorized, "unauthorized").
			Header("WWW-Authenticate", `Bearer realm="compras"`).Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			operationFor(r.Method), log.NewFields().WithOwner(auth.OwnerID(r.Context())))
		ErrorResponse(http.StatusInternalServerError, "internal error").Write(w)
	}
}

func duplicateMessage(err error) string {
	for _, known := range []error{core.ErrDuplicateProduct, core.ErrDuplicateStore, core.ErrDuplicateItem, core.ErrPriceExists} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

// writeUnauthorized is the rejection hook for the auth middleware.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err)
}

// writeRateLimited is the rejection hook for the rate limiter.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPut, http.MethodPatch:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	default:
		return log.OpRead
	}
}
