// Package httputil centralizes JSON response and error translation for HTTP
// handlers so every route speaks the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "hearth/pkg/domain-errors"
)

// statusOf maps domain error codes to HTTP statuses. Forbidden and NotFound
// are distinct on purpose: tenancy violations must never degrade to 404.
func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeStorageInit, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a coded error as a JSON envelope. Internal errors omit
// the description so infrastructure details never leak to callers; conflict
// errors include their meta (current_version) so clients can recover without
// an extra round trip.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""
	var meta map[string]any

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
		meta = de.Meta
	}

	body := map[string]any{"error": string(code)}
	if message != "" && code != dErrors.CodeInternal && code != dErrors.CodeStorageInit {
		body["error_description"] = message
	}
	for k, v := range meta {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
