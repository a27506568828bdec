package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every error returned by the API.
type ErrorResponse struct {
	Error   string      `json:"error"`             // Machine-readable error code
	Message string      `json:"message"`           // Human-readable message
	Details string      `json:"details,omitempty"` // Optional additional context
	Fields  interface{} `json:"fields,omitempty"`  // Structured context, e.g. a password checklist
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message, Details: details})
}

// WriteErrorWithFields writes a JSON error response carrying structured fields.
func WriteErrorWithFields(w http.ResponseWriter, statusCode int, errorCode, message string, fields interface{}) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message, Fields: fields})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

// WriteLocked reports a console that is locked out after too many failed logins.
func WriteLocked(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusLocked, "account_locked", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
