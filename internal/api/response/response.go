package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Detail  string       `json:"detail,omitempty"`  // Internal error text, never sent in production
	Details []FieldError `json:"details,omitempty"` // Per-field validation failures
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON sends a standard JSON response.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; only log.
			zap.L().Error("Error encoding JSON response", zap.Error(err))
		}
	}
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, ErrorResponse{Error: message})
}

// ErrorDetail sends a JSON error response carrying internal detail.
func ErrorDetail(w http.ResponseWriter, statusCode int, message, detail string) {
	JSON(w, statusCode, ErrorResponse{Error: message, Detail: detail})
}

// ValidationError sends a 400 listing every invalid field.
func ValidationError(w http.ResponseWriter, details []FieldError) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: details})
}

// Message sends {"message": msg}.
func Message(w http.ResponseWriter, statusCode int, msg string) {
	JSON(w, statusCode, map[string]string{"message": msg})
}
