package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]Checker
		status int
		want   map[string]interface{}
	}{
		{"all ok", map[string]Checker{"users": ok, "otps": ok}, http.StatusOK,
			map[string]interface{}{"users": "ok", "otps": "ok"}},
		{"one down", map[string]Checker{"users": ok, "smtp": down}, http.StatusServiceUnavailable,
			map[string]interface{}{"users": "ok", "smtp": "unavailable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.status, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, tt.want, body["checks"])
			assert.NotContains(t, rr.Body.String(), "refused")
		})
	}
}
