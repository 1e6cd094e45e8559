package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rast-auth-api/internal/application/auth"
	"github.com/rast-auth-api/internal/domain"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) RequestOTP(ctx context.Context, req auth.SignupRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) VerifyAndRegister(ctx context.Context, req auth.VerifySignupRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) GoogleLogin(ctx context.Context, req auth.GoogleLoginRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func jsonReq(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func registeredUser() *domain.User {
	return &domain.User{UserID: "01HX", Email: "a@b.com", PasswordHash: "$2a$10$secret", Verified: true}
}

// --- Signup ---

func TestSignup_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("RequestOTP", mock.Anything, mock.MatchedBy(func(req auth.SignupRequest) bool {
		return req.Email == "a@b.com" && req.Password == "Abc123!@" && req.RemoteIP == "192.0.2.1"
	})).Return(nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Signup(rr, jsonReq(t, http.MethodPost, "/auth/signup", map[string]string{
		"email": "a@b.com", "password": "Abc123!@",
	}))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])
	svc.AssertExpectations(t)
}

func TestSignup_InvalidBody(t *testing.T) {
	svc := &mockAuthSvc{}
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Signup(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, false, decodeBody(t, rr)["success"])
	svc.AssertNotCalled(t, "RequestOTP", mock.Anything, mock.Anything)
}

func TestSignup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		message  string
		wantCode string
	}{
		{"validation", fmt.Errorf("invalid email format: %w", domain.ErrValidation), http.StatusBadRequest, "invalid email format", ""},
		{"conflict", fmt.Errorf("email a@b.com: %w", domain.ErrConflict), http.StatusBadRequest, "User already exists", ""},
		{"challenge", domain.ErrChallengeFailed, http.StatusBadRequest, "reCAPTCHA verification failed", ""},
		{"delivery", fmt.Errorf("send: %w: %w", domain.ErrDeliveryFailed, errors.New("smtp 421")), http.StatusBadGateway, "", CodeDeliveryFailed},
		{"store", fmt.Errorf("users.GetByEmail: %w: %w", domain.ErrStoreUnavailable, errors.New("dial tcp: refused")), http.StatusInternalServerError, "Internal server error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthSvc{}
			svc.On("RequestOTP", mock.Anything, mock.Anything).Return(tt.err)

			rr := httptest.NewRecorder()
			NewAuthHandler(svc).Signup(rr, jsonReq(t, http.MethodPost, "/auth/signup", map[string]string{
				"email": "a@b.com", "password": "Abc123!@",
			}))

			assert.Equal(t, tt.status, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, false, body["success"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			}
			assert.NotContains(t, rr.Body.String(), "refused")
		})
	}
}

// --- VerifySignup ---

func TestVerifySignup_Created(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyAndRegister", mock.Anything, auth.VerifySignupRequest{Email: "a@b.com", Password: "Abc123!@", OTP: "482913"}).
		Return(&auth.AuthResult{Token: "jwt", User: registeredUser()}, nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).VerifySignup(rr, jsonReq(t, http.MethodPost, "/auth/verify-signup", map[string]string{
		"email": "a@b.com", "password": "Abc123!@", "otp": "482913",
	}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "jwt", body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "01HX", user["id"])
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, true, user["verified"])
	assert.NotContains(t, rr.Body.String(), "secret")
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestVerifySignup_InvalidOTP(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyAndRegister", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("verify: %w", domain.ErrInvalidOTP))

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).VerifySignup(rr, jsonReq(t, http.MethodPost, "/auth/verify-signup", map[string]string{
		"email": "a@b.com", "password": "Abc123!@", "otp": "000000",
	}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid or expired OTP", decodeBody(t, rr)["message"])
}

// --- Login ---

func TestLogin_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.MatchedBy(func(req auth.LoginRequest) bool {
		return req.Email == "a@b.com" && req.RecaptchaToken == "cap"
	})).Return(&auth.AuthResult{Token: "jwt", User: registeredUser()}, nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Login(rr, jsonReq(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "Abc123!@", "recaptchaToken": "cap",
	}))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "jwt", body["token"])
	assert.NotNil(t, body["user"])
}

func TestLogin_InvalidCredentials_SameResponse(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.MatchedBy(func(req auth.LoginRequest) bool { return req.Email == "a@b.com" })).
		Return(nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials))
	svc.On("Login", mock.Anything, mock.MatchedBy(func(req auth.LoginRequest) bool { return req.Email == "ghost@b.com" })).
		Return(nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials))
	h := NewAuthHandler(svc)

	wrongPw := httptest.NewRecorder()
	h.Login(wrongPw, jsonReq(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "x"}))
	noUser := httptest.NewRecorder()
	h.Login(noUser, jsonReq(t, http.MethodPost, "/auth/login", map[string]string{"email": "ghost@b.com", "password": "x"}))

	assert.Equal(t, http.StatusBadRequest, wrongPw.Code)
	assert.Equal(t, wrongPw.Code, noUser.Code)
	assert.Equal(t, wrongPw.Body.String(), noUser.Body.String())
}

// --- Google ---

func TestGoogle_Unauthorized(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("GoogleLogin", mock.Anything, auth.GoogleLoginRequest{IDToken: "bad"}).
		Return(nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized))

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Google(rr, jsonReq(t, http.MethodPost, "/auth/google", map[string]string{"idToken": "bad"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGoogle_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("GoogleLogin", mock.Anything, auth.GoogleLoginRequest{IDToken: "good"}).
		Return(&auth.AuthResult{Token: "jwt", User: registeredUser()}, nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Google(rr, jsonReq(t, http.MethodPost, "/auth/google", map[string]string{"idToken": "good"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "jwt", decodeBody(t, rr)["token"])
}
