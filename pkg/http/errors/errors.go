package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondError writes a standardized error response to the HTTP response writer
func RespondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// RespondValidationError writes a validation error response with field information
func RespondValidationError(w http.ResponseWriter, code, message, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Message: message,
		Field:   field,
	})
}

// RespondValidationErrors maps validator field errors to a 400 response.
// Falls back to a plain bad request when err does not wrap validator.ValidationErrors.
func RespondValidationErrors(w http.ResponseWriter, message string, err error) {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		RespondBadRequest(w, ErrCodeValidationFailed, message)
		return
	}

	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	RespondErrorWithDetails(w, http.StatusBadRequest, ErrCodeValidationFailed, message, details)
}

// RespondErrorWithDetails writes an error response with additional details
func RespondErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// RespondMethodNotAllowed writes a 405 with the Allow header populated.
func RespondMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	RespondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}

// RespondInternalError writes an internal server error response
func RespondInternalError(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// RespondNotFound writes a not found error response
func RespondNotFound(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusNotFound, code, message)
}

// RespondUnauthorized writes an unauthorized error response
func RespondUnauthorized(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusUnauthorized, code, message)
}

// RespondForbidden writes a forbidden error response
func RespondForbidden(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusForbidden, code, message)
}

// RespondBadRequest writes a bad request error response
func RespondBadRequest(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusBadRequest, code, message)
}

// RespondServiceUnavailable writes a service unavailable error response
func RespondServiceUnavailable(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusServiceUnavailable, code, message)
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
