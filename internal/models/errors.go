package models

import (
	"net/http"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// WriteError writes a plain HTTP error for requests that never reached the
// JSON-RPC layer (auth, rate limit).
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorResponse{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}
