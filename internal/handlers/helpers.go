package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/workflow/internal/logger"
	"github.com/benvon/workflow/internal/remote"
	"github.com/benvon/workflow/internal/request"
	"github.com/benvon/workflow/internal/validation"
	"github.com/benvon/workflow/internal/workspace"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxErrorMessageLength bounds messages echoed to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage strips control characters and bounds the length
func sanitizeErrorMessage(message string) string {
	return logger.SanitizeString(message, maxErrorMessageLength)
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statusForError maps domain errors to a status code. ok is false for errors
// that have no client-facing meaning.
func statusForError(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, workspace.ErrInvalid):
		return http.StatusBadRequest, true
	case errors.Is(err, remote.ErrRevisionConflict):
		return http.StatusConflict, true
	case errors.Is(err, remote.ErrNotConfigured):
		return http.StatusPreconditionFailed, true
	case errors.Is(err, remote.ErrNotSignedIn), errors.Is(err, remote.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	default:
		return http.StatusInternalServerError, false
	}
}

// respondError answers with the status mapped from err. Unmapped errors are
// logged and reported as "Failed to <action>".
func respondError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, action string) {
	status, ok := statusForError(err)
	if !ok {
		log.Error("request_failed",
			zap.String("action", action),
			zap.String("path", logger.SanitizePath(r.URL.Path)),
			zap.String("request_id", request.IDFromContext(r.Context())),
			zap.Error(err),
		)
		respondJSONError(w, status, http.StatusText(status), "Failed to "+action)
		return
	}
	respondJSONError(w, status, http.StatusText(status), err.Error())
}

// decodeJSON decodes and validates the request body into dst. It writes the
// error response itself and returns false when the request must stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		case optional && errors.Is(err, io.EOF):
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return false
		}
	}

	if err := validation.Validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+validation.FieldMessage(validationErrors[0]))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// LongRunning reports requests that wait on the AI provider or the remote backup
// and therefore run under their own deadlines instead of the router timeout
func LongRunning(r *http.Request) bool {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasPrefix(path, "/api/v1/sync/"):
		return true
	case path == "/api/v1/tasks/analysis":
		return true
	case strings.HasPrefix(path, "/api/v1/notes/"):
		return strings.HasSuffix(path, "/improve") || strings.HasSuffix(path, "/extract-tasks")
	default:
		return false
	}
}
