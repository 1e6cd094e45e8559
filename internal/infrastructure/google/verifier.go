package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/rast-auth-api/internal/domain"
)

// Identity holds the verified claims extracted from a Google ID token.
type Identity struct {
	Sub           string
	Email         string
	EmailVerified bool
}

// validateFunc matches idtoken.Validate.
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
	validate validateFunc
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the Google ID token and returns the asserted identity.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid or
// carries no verified email.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	if email == "" || !emailVerified {
		return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}
	return &Identity{
		Sub:           p.Subject,
		Email:         strings.ToLower(email),
		EmailVerified: emailVerified,
	}, nil
}
