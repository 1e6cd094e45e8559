package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rast-auth-api/internal/domain"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Code    string             `json:"code,omitempty"`
	Token   string             `json:"token,omitempty"`
	User    *domain.PublicUser `json:"user,omitempty"`
}

// ReadinessEnvelope reports per-dependency readiness.
type ReadinessEnvelope struct {
	Success bool              `json:"success"`
	Checks  map[string]string `json:"checks"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Message: msg})
}
