package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rast-auth-api/internal/application/auth"
	"github.com/rast-auth-api/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 16

// AuthHandler handles signup, verification and login endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	req.RemoteIP = middleware.ClientIP(r)
	if err := h.svc.RequestOTP(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "OTP sent to your email"})
}

func (h *AuthHandler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifySignupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyAndRegister(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Success: true,
		Message: "User registered successfully",
		Token:   res.Token,
		User:    res.User.Public(),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	req.RemoteIP = middleware.ClientIP(r)
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Token: res.Token, User: res.User.Public()})
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req auth.GoogleLoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.GoogleLogin(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Token: res.Token, User: res.User.Public()})
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
