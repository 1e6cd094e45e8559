package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rast-auth-api/internal/domain"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCurrent_ReturnsUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com", Verified: true}, nil)

	u, err := NewService(us).Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
}

func TestCurrent_DeletedUser_Unauthorized(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	_, err := NewService(us).Current(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCurrent_EmptySubject(t *testing.T) {
	us := &mockUserStore{}
	_, err := NewService(us).Current(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	us.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCurrent_StoreUnavailable(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(nil, domain.ErrStoreUnavailable)

	_, err := NewService(us).Current(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
