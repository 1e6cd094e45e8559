package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// OTP store backends.
const (
	OTPBackendDynamo = "dynamo"
	OTPBackendRedis  = "redis"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"5000"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	OTPBackend string        `env:"OTP_BACKEND" envDefault:"dynamo"`
	OTPTTL     time.Duration `env:"OTP_TTL" envDefault:"10m"`
	Redis      Redis         `envPrefix:"REDIS_"`

	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry  time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	SMTPHost     string `env:"SMTP_HOST,required,notEmpty"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPFrom     string `env:"SMTP_FROM,required,notEmpty"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"RAST"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	RecaptchaSecret string `env:"RECAPTCHA_SECRET_KEY"` // empty disables the challenge gate
	GoogleClientID  string `env:"GOOGLE_CLIENT_ID"`     // empty disables /auth/google

	ExternalCallTimeout time.Duration `env:"EXTERNAL_CALL_TIMEOUT" envDefault:"5s"`
	RateLimitRPS        float64       `env:"RATE_LIMIT_RPS" envDefault:"5"` // 0 disables
	RateLimitBurst      int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	AllowedOrigins      []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	OTPs  string `env:"DYNAMO_TABLE_OTPS" envDefault:"otps"`
}

// Redis holds the connection settings for the redis OTP backend.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Load reads all configuration from environment variables and rejects
// incomplete setups. The process must not serve traffic when it fails.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.OTPBackend {
	case OTPBackendDynamo:
	case OTPBackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when OTP_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown OTP_BACKEND %q", c.OTPBackend))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}
	if c.ExternalCallTimeout <= 0 {
		errs = append(errs, errors.New("EXTERNAL_CALL_TIMEOUT must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.BcryptCost))
	}
	return errors.Join(errs...)
}

// RecaptchaEnabled reports whether the challenge gate is active.
func (c *Config) RecaptchaEnabled() bool { return c.RecaptchaSecret != "" }
