package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rast-auth-api/internal/domain"
)

type Service interface {
	// Current returns the user a verified session token was issued to.
	Current(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	users userStore
}

func NewService(users userStore) Service {
	return &service{users: users}
}

func (s *service) Current(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing subject: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		// Token outlived its account.
		return nil, fmt.Errorf("session user %s: %w", userID, domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
