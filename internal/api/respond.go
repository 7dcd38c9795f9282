package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the shared response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, code int, data any, message string) {
	writeJSON(w, code, envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// writeResult is for validation outcomes where success mirrors validity
// but the request itself was well formed.
func writeResult(w http.ResponseWriter, success bool, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{
		Success: success,
		Data:    data,
		Message: message,
	})
}

func writeUnprocessable(w http.ResponseWriter, errMsg, message string, details any) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Error:   errMsg,
		Message: message,
		Details: details,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Error:   "invalid request",
		Message: message,
	})
}

func writeInternalError(w http.ResponseWriter, errMsg, message string) {
	writeJSON(w, http.StatusInternalServerError, envelope{
		Success: false,
		Error:   errMsg,
		Message: message,
	})
}
