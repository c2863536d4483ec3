package handler

// RESPONSE HELPERS:
// Every handler answers through a Responder so that success and error
// bodies have one shape across the API.
//
// CONSISTENT ERROR FORMAT:
//
//	{"error": "task not found with id abc", "code": "not_found", "field": "", "detail": ""}
//
// "error" is always present and human-readable; the client shows it as is.
// "code" is machine-readable, "field" names the offending input field for
// validation and uniqueness errors, and "detail" carries the raw message of
// unexpected failures when the server is configured to expose it.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/life-tracker/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// SuccessResponse is the body of operations that return nothing else.
type SuccessResponse struct {
	Success bool `json:"success"`
}

type Responder struct {
	logger       *slog.Logger
	exposeErrors bool
}

// NewResponder creates a Responder. With exposeErrors, 500 responses carry
// the underlying error text in "detail".
func NewResponder(logger *slog.Logger, exposeErrors bool) *Responder {
	return &Responder{logger: logger, exposeErrors: exposeErrors}
}

// JSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written; once Encode
// writes, later header changes are silently ignored.
func (rs *Responder) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			rs.logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// Error maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.Is walks the whole chain, so a service error such as
// fmt.Errorf("creating task: %w", apperror.ValidationFailed(...)) still maps
// to 400.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rs.JSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "request body is too large",
			Code:  "too_large",
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, code := classify(err)
		if status != http.StatusInternalServerError {
			rs.JSON(w, status, ErrorResponse{
				Error: appErr.Message,
				Code:  code,
				Field: appErr.Field,
			})
			return
		}
	}

	// Unknown error: a generic 500, with the raw message only if configured.
	rs.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	resp := ErrorResponse{Error: "internal server error", Code: "internal_error"}
	if rs.exposeErrors {
		resp.Detail = err.Error()
	}
	rs.JSON(w, http.StatusInternalServerError, resp)
}

// NotFound is the JSON 404 for unmatched routes.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.JSON(w, http.StatusNotFound, ErrorResponse{
		Error: "no route for " + r.Method + " " + r.URL.Path,
		Code:  "not_found",
	})
}

// MethodNotAllowed is the JSON 405 for known paths with the wrong method.
func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rs.JSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error: r.Method + " is not allowed on " + r.URL.Path,
		Code:  "method_not_allowed",
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a JSON body into v. Unknown fields are ignored so that
// clients may send whole objects (including read-only fields like userId).
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperror.ValidationFailed("", "request body is required")
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("", "request body is required")
	case errors.As(err, &typeErr):
		return apperror.ValidationFailed(typeErr.Field, typeErr.Field+" has the wrong type")
	}
	return apperror.ValidationFailed("", "invalid JSON in request body")
}
