package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so all error bodies
// share one shape the app can parse without looking at the status code:
//
//	{"error": "validation_error", "message": "quantity of \"egg\" must not be negative", "field": "pantry"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/easychef/internal/apperror"
)

// maxBodyBytes bounds request bodies. A full pantry is far below this.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
// Having a struct ensures consistent JSON shape across all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, for validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a single JSON value from the request body into dst.
// Unknown fields are rejected so a misspelt field is not silently dropped.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING (by apperror.Kind):
//
//	validation   → 400    not_found → 404    conflict → 409
//	unauthorized → 401    forbidden → 403
//	transport / decode → 502 (the store failed, not this server)
//	canceled     → 503    anything else → 500
//
// Only client-side errors (4xx) echo the error's message. Store and internal
// failures get a generic message; the details are in the server log.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errorType := "internal_error"
	message := "An internal error occurred"

	switch apperror.Kind(err) {
	case "validation":
		status, errorType = http.StatusBadRequest, "validation_error"
	case "not_found":
		status, errorType = http.StatusNotFound, "not_found"
	case "conflict":
		status, errorType = http.StatusConflict, "conflict"
	case "unauthorized":
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case "forbidden":
		status, errorType = http.StatusForbidden, "forbidden"
	case "transport", "decode":
		status, errorType = http.StatusBadGateway, "store_unavailable"
		message = "The profile store could not be reached"
	case "canceled":
		status, errorType = http.StatusServiceUnavailable, "canceled"
		message = "The request was canceled or timed out"
	}

	resp := ErrorResponse{Error: errorType, Message: message}

	var appErr *apperror.AppError
	if status < 500 && errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}

	writeJSON(w, status, resp)
}
