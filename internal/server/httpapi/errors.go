package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"equiptrack/internal/common"
	"equiptrack/internal/server/services"
)

// Machine-readable error codes carried in the response body.
const (
	codeValidationError     = "VALIDATION_ERROR"
	codeDuplicateKey        = "DUPLICATE_KEY"
	codeConstraintViolation = "CONSTRAINT_VIOLATION"
	codeNotFound            = "NOT_FOUND"
	codeStoreUnavailable    = "STORE_UNAVAILABLE"
	codeInternalError       = "INTERNAL_ERROR"
)

// errorBody is the structured error response: {error, details, code}.
type errorBody struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	Code      string   `json:"code"`
	Timestamp string   `json:"timestamp,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string, details []string) {
	writeJSON(w, status, errorBody{Error: message, Details: details, Code: code})
}

// writeError maps service/repository errors onto the HTTP error contract.
func writeError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError

	switch {
	case errors.As(err, &verr):
		writeErrorBody(w, http.StatusBadRequest, codeValidationError, "Missing required fields", verr.Missing)
	case errors.Is(err, common.ErrorValidation):
		writeErrorBody(w, http.StatusBadRequest, codeValidationError, err.Error(), nil)
	case errors.Is(err, common.ErrorDuplicateKey):
		writeErrorBody(w, http.StatusBadRequest, codeDuplicateKey, "Equipment id already exists", nil)
	case errors.Is(err, common.ErrorConstraintViolation), errors.Is(err, common.ErrorMissingField):
		writeErrorBody(w, http.StatusBadRequest, codeConstraintViolation, err.Error(), nil)
	case errors.Is(err, common.ErrorNotFound):
		writeErrorBody(w, http.StatusNotFound, codeNotFound, "Record not found", nil)
	case errors.Is(err, common.ErrorStoreUnavailable):
		writeErrorBody(w, http.StatusInternalServerError, codeStoreUnavailable, "Record store is not available", nil)
	default:
		writeInternalError(w)
	}
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:     "Internal server error",
		Code:      codeInternalError,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
