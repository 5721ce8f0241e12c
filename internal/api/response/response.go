package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/upstream"
)

// Error codes that are not domain kinds
const (
	CodeInternal        = "internal_error"
	CodeTooManyRequests = "rate_limited"
)

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error part of the envelope
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// Fail maps err onto a status and envelope. Unclassified errors are logged
// with the request id and answered with a generic message.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	var classified *domain.Error
	if !errors.As(err, &classified) {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("internal error")
		InternalError(w, "something went wrong, please try again later")
		return
	}

	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("kind", string(classified.Kind)).
			Msg("upstream failure")
	}
	Error(w, status, string(classified.Kind), classified.Message)
}

// StatusFor returns the HTTP status for a classified error
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidRequest, domain.KindUpstreamRejected:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound, domain.KindNotConnected:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstreamMalformed:
		return http.StatusBadGateway
	case domain.KindUpstreamUnreachable:
		var unreachable *upstream.UnreachableError
		if errors.As(err, &unreachable) && unreachable.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, string(domain.KindInvalidRequest), message)
}

// ValidationFailed sends a 400 response listing the offending fields
func ValidationFailed(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Error: &ErrorBody{
			Code:    string(domain.KindInvalidRequest),
			Message: "validation failed",
			Fields:  fields,
		},
	})
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, string(domain.KindUnauthenticated), message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, string(domain.KindForbidden), message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, string(domain.KindNotFound), message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, CodeInternal, message)
}
