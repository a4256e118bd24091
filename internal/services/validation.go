package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the error envelope every handler returns. Details
// carries per-field validation failures for 400 responses; it is
// omitted for state-conflict and storage errors.
type ErrorResponse struct {
	Error   string            `json:"error" example:"Insufficient funds"`
	Details map[string]string `json:"details,omitempty"`
}

// ValidationHelper wraps a shared validator instance for the request
// payloads (transfers, flags, reviews).
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse writes the JSON error envelope. A non-nil
// validationErr must be validator.ValidationErrors; each failed field
// becomes a Details entry keyed by the struct field name.
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("failed on the '%s' rule", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
