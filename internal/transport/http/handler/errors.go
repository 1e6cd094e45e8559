package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rast-auth-api/internal/domain"
)

// CodeDeliveryFailed tells the client the OTP may be re-requested.
const CodeDeliveryFailed = "delivery_failed"

// httpError converts a service error into the failure envelope. Server-side
// failures are logged with detail and answered with a generic message.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrChallengeFailed):
		writeError(w, http.StatusBadRequest, domain.ErrChallengeFailed.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, detail(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, domain.ErrInvalidOTP):
		writeError(w, http.StatusBadRequest, "Invalid or expired OTP")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, domain.ErrDeliveryFailed):
		slog.Warn("otp delivery failed", "request_id", chimiddleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusBadGateway, Envelope{
			Message: "Could not send the OTP email, please try again",
			Code:    CodeDeliveryFailed,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// detail strips the sentinel suffix added by fmt.Errorf("%s: %w", msg, sentinel).
func detail(err, sentinel error) string {
	if msg, ok := strings.CutSuffix(err.Error(), ": "+sentinel.Error()); ok && msg != "" {
		return msg
	}
	return sentinel.Error()
}
