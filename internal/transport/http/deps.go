package http

import (
	"context"
	"time"

	"github.com/rast-auth-api/internal/application/auth"
	"github.com/rast-auth-api/internal/domain"
	jwtinfra "github.com/rast-auth-api/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from the credential store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, email string, updates map[string]interface{}) error
	Ping(ctx context.Context) error
}

// OTPRepository is the minimal interface the router requires from an OTP store.
// Both the DynamoDB and Redis backends satisfy it.
type OTPRepository interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Consume(ctx context.Context, email string) (string, error)
	ConsumeIfMatch(ctx context.Context, email, code string) (bool, error)
	Ping(ctx context.Context) error
}

// Mailer is the minimal interface the router requires from the email transport.
type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
	Verify(ctx context.Context) error
}

// Deps holds all infrastructure dependencies for the router.
// Challenge and Google are nil when their feature is disabled.
type Deps struct {
	UserRepo    UserRepository
	OTPStore    OTPRepository
	Mailer      Mailer
	Challenge   auth.ChallengeVerifier
	Google      auth.GoogleVerifier
	JWTProvider *jwtinfra.Provider
}
