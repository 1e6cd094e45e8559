package handler

import (
	"net/http"

	"github.com/rast-auth-api/internal/application/session"
	"github.com/rast-auth-api/internal/transport/http/middleware"
)

// SessionHandler serves the current session.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.svc.Current(r.Context(), claims.UserID())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, User: u.Public()})
}
