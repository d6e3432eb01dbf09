package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the wrapper around every application payload served by the sandbox.
type Envelope struct {
	Data          any      `json:"data"`
	Message       string   `json:"message"`
	StatusCode    int      `json:"statusCode"`
	Success       bool     `json:"success"`
	ErrorMessages []string `json:"errorMessages,omitempty"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteEnvelope writes a successful enveloped response
func WriteEnvelope(w http.ResponseWriter, data any, message string, statusCode int) {
	WriteJSONResponse(w, Envelope{
		Data:       data,
		Message:    message,
		StatusCode: statusCode,
		Success:    true,
	}, statusCode)
}

// WriteErrorResponse writes a failed enveloped response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int, details ...string) {
	WriteJSONResponse(w, Envelope{
		Message:       message,
		StatusCode:    statusCode,
		Success:       false,
		ErrorMessages: details,
	}, statusCode)
}
