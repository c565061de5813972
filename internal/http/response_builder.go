// Package http provides the HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses so every handler
// produces the same envelope shape and content type.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
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

// Body sets the payload to encode.
func (b *JSONResponseBuilder) Body(payload any) *JSONResponseBuilder {
	b.payload = payload
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// statusResponse is the {success, message?} envelope used by write endpoints.
type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse creates a 200 response with {success: true}.
func SuccessResponse(message string) *JSONResponseBuilder {
	return NewJSONResponse().Body(statusResponse{Success: true, Message: message})
}

// FailureResponse creates an error response carrying a human-readable reason.
func FailureResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(statusResponse{Success: false, Message: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return FailureResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates the uniform 401 for unauthenticated requests.
func UnauthorizedError() *JSONResponseBuilder {
	return FailureResponse(http.StatusUnauthorized, "Not authenticated")
}

// ForbiddenError creates the uniform 403 for a missing or foreign record.
// The same body covers both cases so callers cannot probe other owners' ids.
func ForbiddenError() *JSONResponseBuilder {
	return FailureResponse(http.StatusForbidden, "Forbidden")
}

// InternalServerError creates a 500 response without internal detail.
func InternalServerError() *JSONResponseBuilder {
	return FailureResponse(http.StatusInternalServerError, "Something went wrong")
}
