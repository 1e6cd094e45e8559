package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/rast-auth-api/internal/domain"
)

// OTPSubject is the subject line of the signup code email.
const OTPSubject = "Your OTP for RAST signup"

// maxAttempts bounds delivery to one initial try plus one retry.
const maxAttempts = 2

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <h2>Welcome to RAST</h2>
    <p>Use the code below to finish creating your account:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
    <p>This code is valid for {{.ValidMinutes}} minutes. If you did not request it, you can ignore this email.</p>
  </body>
</html>`))

// Mailer is the transport capability the sender delivers through.
type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
}

type Sender interface {
	SendOTP(ctx context.Context, email, code string) error
}

type sender struct {
	mailer         Mailer
	validFor       time.Duration
	attemptTimeout time.Duration
}

// NewSender builds the OTP email sender. validFor is the advertised code
// lifetime; attemptTimeout bounds each transport attempt.
func NewSender(mailer Mailer, validFor, attemptTimeout time.Duration) Sender {
	return &sender{mailer: mailer, validFor: validFor, attemptTimeout: attemptTimeout}
}

func (s *sender) SendOTP(ctx context.Context, email, code string) error {
	body, err := renderOTP(code, s.validFor)
	if err != nil {
		return fmt.Errorf("render otp email: %w: %w", domain.ErrDeliveryFailed, err)
	}
	msg := domain.Message{To: email, Subject: OTPSubject, HTMLBody: body}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = s.attempt(ctx, msg); lastErr == nil {
			return nil
		}
		slog.Warn("otp email attempt failed", "attempt", attempt, "err", lastErr)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("send otp email: %w: %w", domain.ErrDeliveryFailed, lastErr)
}

func (s *sender) attempt(ctx context.Context, msg domain.Message) error {
	if s.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
	}
	return s.mailer.Send(ctx, msg)
}

func renderOTP(code string, validFor time.Duration) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Code         string
		ValidMinutes int
	}{Code: code, ValidMinutes: int(validFor.Minutes())})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
