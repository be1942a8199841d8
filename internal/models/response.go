package models

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Sessions int64             `json:"sessions"`
	Tools    int               `json:"tools"`
	Policies int               `json:"policies"`
	Checks   map[string]string `json:"checks,omitempty"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// WriteRPC writes a JSON-RPC envelope. Envelopes always travel with 200;
// the outcome lives in the body.
func WriteRPC(w http.ResponseWriter, resp Response) {
	WriteJSON(w, http.StatusOK, resp)
}
