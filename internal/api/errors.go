package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/logging"
	"github.com/portfolio-reconciler/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     types.ServiceError `json:"error"`
	RequestID string             `json:"requestId,omitempty"`
}

// Common error codes
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeNotFound         = "NOT_FOUND"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: w.Header().Get(requestIDHeader),
	}

	respondJSON(w, statusCode, response)
}

// respondServiceError maps a service error to its HTTP response. Server-side
// failures are logged and their details withheld.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	status := catErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithFields(map[string]interface{}{
			"code":     catErr.Code,
			"category": catErr.Category,
		}).ErrorWithErr("Request failed", err)

		message := catErr.Message
		if catErr.Category == apperrors.CategorySystem {
			message = "An internal error occurred"
		}
		respondError(w, status, catErr.Code, message, nil)
		return
	}

	respondError(w, status, catErr.Code, catErr.Message, catErr.Details)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // headers already sent
	}
}

// parseJSONBody decodes a JSON request body of at most maxBytes. Fields the
// records do not model are ignored so upstream payloads can be posted as-is.
func parseJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("request body must contain a single JSON value")
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON value")
	}
	return nil
}
