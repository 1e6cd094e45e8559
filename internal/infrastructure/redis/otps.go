package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rast-auth-api/internal/config"
	"github.com/rast-auth-api/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// consumeIfMatchScript deletes the key only when it still holds ARGV[1].
var consumeIfMatchScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// OTPStore keeps pending signup codes in Redis with a native key expiry.
type OTPStore struct {
	client *goredis.Client
}

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg config.Redis) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

func NewOTPStore(client *goredis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Put replaces any code stored for email.
func (s *OTPStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+email, code, ttl).Err(); err != nil {
		return unavailable("set otp", err)
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, keyPrefix+email).Result()
	if errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("otp: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("get otp", err)
	}
	return code, nil
}

// Consume atomically deletes and returns the live code for email.
func (s *OTPStore) Consume(ctx context.Context, email string) (string, error) {
	code, err := s.client.GetDel(ctx, keyPrefix+email).Result()
	if errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("otp: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("consume otp", err)
	}
	return code, nil
}

// ConsumeIfMatch deletes the key only when it holds code. Lua scripts run
// atomically, so of two concurrent callers with the right code only one sees true.
func (s *OTPStore) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeIfMatchScript.Run(ctx, s.client, []string{keyPrefix + email}, code).Int()
	if err != nil {
		return false, unavailable("consume otp", err)
	}
	return n == 1, nil
}

func (s *OTPStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping redis", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
