package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rast-auth-api/internal/domain"
)

// DefaultEndpoint is Google's siteverify URL.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier checks reCAPTCHA tokens against the siteverify endpoint.
type Verifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithEndpoint overrides the siteverify URL.
func WithEndpoint(endpoint string) Option {
	return func(v *Verifier) { v.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.client = c }
}

func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret:   secret,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify returns nil when Google accepts token. Every other outcome,
// including transport failures, is reported as domain.ErrChallengeFailed.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("missing token: %w", domain.ErrChallengeFailed)
	}
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w: %w", domain.ErrChallengeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify: %w: %w", domain.ErrChallengeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify status %d: %w", resp.StatusCode, domain.ErrChallengeFailed)
	}
	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode siteverify: %w: %w", domain.ErrChallengeFailed, err)
	}
	if !body.Success {
		return fmt.Errorf("rejected %v: %w", body.ErrorCodes, domain.ErrChallengeFailed)
	}
	return nil
}
