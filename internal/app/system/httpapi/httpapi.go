// internal/app/system/httpapi/httpapi.go

// Package httpapi provides JSON response helpers and the error taxonomy used
// at the HTTP boundary.
//
// Handlers translate store/policy failures into one of the taxonomy codes
// here; nothing below the boundary writes HTTP responses directly.
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Error codes carried in JSON error bodies. Clients branch on these rather
// than parsing messages.
const (
	CodeValidation      = "validation_error"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("json encode failed", zap.Error(err))
	}
}

// OK writes a 200 response with v as the body.
func OK(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusOK, v) }

// Created writes a 201 response with v as the body.
func Created(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusCreated, v) }

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// BadRequest writes a 400 validation error with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: CodeValidation, Message: msg})
}

// Unauthorized writes a 401 error. Used for missing/invalid/expired
// credentials; distinct from Forbidden.
func Unauthorized(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnauthorized, errorBody{Error: CodeUnauthenticated, Message: msg})
}

// Forbidden writes a 403 error with a human-readable reason (role requirement
// or missing permission flag).
func Forbidden(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusForbidden, errorBody{Error: CodeForbidden, Message: msg})
}

// NotFound writes a 404 error naming the missing resource.
func NotFound(w http.ResponseWriter, resource string) {
	WriteJSON(w, http.StatusNotFound, errorBody{Error: CodeNotFound, Message: resource + " not found"})
}

// Conflict writes a 409 error for duplicate unique fields.
func Conflict(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusConflict, errorBody{Error: CodeConflict, Message: msg})
}

// TooManyRequests writes a 429 error for throttled endpoints.
func TooManyRequests(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusTooManyRequests, errorBody{Error: CodeRateLimited, Message: msg})
}

// Internal writes a 500 error. The underlying error is logged, never sent to
// the client.
func Internal(w http.ResponseWriter, log *zap.Logger, err error) {
	if log != nil {
		log.Error("internal error", zap.Error(err))
	} else {
		zap.L().Error("internal error", zap.Error(err))
	}
	WriteJSON(w, http.StatusInternalServerError, errorBody{Error: CodeInternal, Message: "internal server error"})
}

// Decode reads a JSON request body into v. Returns false (after writing a
// 400) when the body is missing or malformed.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		BadRequest(w, "request body required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}
	return true
}
