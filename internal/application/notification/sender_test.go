package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rast-auth-api/internal/domain"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, msg domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func isOTPMessage(to, code string) interface{} {
	return mock.MatchedBy(func(msg domain.Message) bool {
		return msg.To == to && msg.Subject == OTPSubject && strings.Contains(msg.HTMLBody, code)
	})
}

func TestSendOTP_FirstAttemptSucceeds(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, isOTPMessage("a@b.com", "482913")).Return(nil).Once()

	err := NewSender(ml, 10*time.Minute, time.Second).SendOTP(context.Background(), "a@b.com", "482913")
	require.NoError(t, err)
	ml.AssertNumberOfCalls(t, "Send", 1)
}

func TestSendOTP_RetriesOnce(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
	ml.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	err := NewSender(ml, 10*time.Minute, time.Second).SendOTP(context.Background(), "a@b.com", "482913")
	require.NoError(t, err)
	ml.AssertNumberOfCalls(t, "Send", 2)
}

func TestSendOTP_TwoFailures(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, mock.Anything).Return(errors.New("535 auth failed"))

	err := NewSender(ml, 10*time.Minute, time.Second).SendOTP(context.Background(), "a@b.com", "482913")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
	ml.AssertNumberOfCalls(t, "Send", 2)
}

func TestSendOTP_AttemptHasDeadline(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil)

	err := NewSender(ml, 10*time.Minute, 5*time.Second).SendOTP(context.Background(), "a@b.com", "482913")
	require.NoError(t, err)
	ml.AssertExpectations(t)
}

func TestRenderOTP(t *testing.T) {
	body, err := renderOTP("482913", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, body, "482913")
	assert.Contains(t, body, "valid for 10 minutes")
}
