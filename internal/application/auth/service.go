package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rast-auth-api/internal/domain"
	"github.com/rast-auth-api/internal/infrastructure/google"
	"github.com/rast-auth-api/internal/pkg/id"
	"github.com/rast-auth-api/internal/pkg/otp"
	"github.com/rast-auth-api/internal/pkg/validate"
)

const defaultCallTimeout = 5 * time.Second

type SignupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
	RemoteIP       string `json:"-"`
}

type VerifySignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type LoginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
	RemoteIP       string `json:"-"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResult is a minted session token and the user it belongs to.
type AuthResult struct {
	Token string
	User  *domain.User
}

type Service interface {
	RequestOTP(ctx context.Context, req SignupRequest) error
	VerifyAndRegister(ctx context.Context, req VerifySignupRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*AuthResult, error)
}

// OTPStore holds at most one live code per email.
type OTPStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	ConsumeIfMatch(ctx context.Context, email, code string) (bool, error)
}

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, email string, updates map[string]interface{}) error
}

type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
}

type ChallengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type TokenIssuer interface {
	Sign(userID string) (string, error)
}

type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*google.Identity, error)
}

// ServiceDeps groups the collaborators of the auth service. Challenge and
// Google are optional; a nil value disables the feature.
type ServiceDeps struct {
	OTPStore    OTPStore
	UserStore   UserStore
	Notifier    Notifier
	Challenge   ChallengeVerifier
	Tokens      TokenIssuer
	Google      GoogleVerifier
	OTPTTL      time.Duration
	BcryptCost  int
	CallTimeout time.Duration
}

type service struct {
	otps        OTPStore
	users       UserStore
	notifier    Notifier
	challenge   ChallengeVerifier
	tokens      TokenIssuer
	google      GoogleVerifier
	otpTTL      time.Duration
	bcryptCost  int
	callTimeout time.Duration
	dummyHash   []byte
	now         func() time.Time
	newCode     func() (string, error)
}

func NewService(d ServiceDeps) Service {
	s := &service{
		otps:        d.OTPStore,
		users:       d.UserStore,
		notifier:    d.Notifier,
		challenge:   d.Challenge,
		tokens:      d.Tokens,
		google:      d.Google,
		otpTTL:      d.OTPTTL,
		bcryptCost:  d.BcryptCost,
		callTimeout: d.CallTimeout,
		now:         time.Now,
		newCode:     otp.Generate,
	}
	if s.callTimeout <= 0 {
		s.callTimeout = defaultCallTimeout
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	// Compared against on unknown emails so login latency does not reveal
	// whether an account exists.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rast-unknown-user"), s.bcryptCost)
	return s
}

func (s *service) RequestOTP(ctx context.Context, req SignupRequest) error {
	if err := s.verifyChallenge(ctx, req.RecaptchaToken, req.RemoteIP); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return fmt.Errorf("email and password are required: %w", domain.ErrValidation)
	}
	if !validate.Email(email) {
		return fmt.Errorf("invalid email format: %w", domain.ErrValidation)
	}
	if err := validate.Password(req.Password); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	if err := s.ensureNoCredential(ctx, email); err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.otps.Put(ctx, email, code, s.otpTTL)
	}); err != nil {
		return err
	}
	// The stored code is kept on delivery failure; a resend replaces it.
	if err := s.notifier.SendOTP(ctx, email, code); err != nil {
		slog.Warn("otp delivery failed", "email", email, "err", err)
		if !errors.Is(err, domain.ErrDeliveryFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
		}
		return err
	}
	slog.Info("signup otp issued", "email", email)
	return nil
}

func (s *service) VerifyAndRegister(ctx context.Context, req VerifySignupRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.OTP)
	if email == "" || req.Password == "" || code == "" {
		return nil, fmt.Errorf("email, password and otp are required: %w", domain.ErrValidation)
	}
	if !validate.Email(email) {
		return nil, fmt.Errorf("invalid email format: %w", domain.ErrValidation)
	}
	if !otp.Valid(code) {
		return nil, fmt.Errorf("otp must be 6 digits: %w", domain.ErrValidation)
	}
	if err := validate.Password(req.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}

	var consumed bool
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		consumed, err = s.otps.ConsumeIfMatch(ctx, email, code)
		return err
	}); err != nil {
		return nil, err
	}
	if !consumed {
		return nil, fmt.Errorf("verify signup: %w", domain.ErrInvalidOTP)
	}

	if err := s.ensureNoCredential(ctx, email); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: string(hash),
		Verified:     true,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, u)
	}); err != nil {
		return nil, err
	}
	slog.Info("user registered", "user_id", u.UserID)
	return s.issue(u)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := s.verifyChallenge(ctx, req.RecaptchaToken, req.RemoteIP); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrValidation)
	}

	u, err := s.lookup(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials)
	}
	return s.issue(u)
}

// GoogleLogin signs in with a Google identity assertion, creating the
// credential on first use and linking it to an existing local account with
// the same email.
func (s *service) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*AuthResult, error) {
	if s.google == nil {
		return nil, fmt.Errorf("google login disabled: %w", domain.ErrNotFound)
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return nil, fmt.Errorf("idToken is required: %w", domain.ErrValidation)
	}

	var ident *google.Identity
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		ident, err = s.google.Verify(ctx, req.IDToken)
		return err
	}); err != nil {
		return nil, err
	}
	email := normalizeEmail(ident.Email)

	u, err := s.lookup(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.createGoogleUser(ctx, email, ident.Sub)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case u.GoogleSub == "":
		if err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.users.Update(ctx, email, map[string]interface{}{"google_sub": ident.Sub})
		}); err != nil {
			return nil, err
		}
		u.GoogleSub = ident.Sub
	case u.GoogleSub != ident.Sub:
		return nil, fmt.Errorf("google account mismatch: %w", domain.ErrUnauthorized)
	}
	return s.issue(u)
}

func (s *service) createGoogleUser(ctx context.Context, email, sub string) (*domain.User, error) {
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Verified:     true,
		AuthProvider: domain.ProviderGoogle,
		GoogleSub:    sub,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, u)
	})
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent first sign-in.
		return s.lookup(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("user registered", "user_id", u.UserID, "provider", domain.ProviderGoogle)
	return u, nil
}

func (s *service) verifyChallenge(ctx context.Context, token, remoteIP string) error {
	if s.challenge == nil {
		return nil
	}
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.challenge.Verify(ctx, token, remoteIP)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrChallengeFailed) {
		err = fmt.Errorf("%w: %w", domain.ErrChallengeFailed, err)
	}
	return err
}

func (s *service) ensureNoCredential(ctx context.Context, email string) error {
	_, err := s.lookup(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email %s: %w", email, domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *service) lookup(ctx context.Context, email string) (*domain.User, error) {
	var u *domain.User
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.GetByEmail(ctx, email)
		return err
	})
	return u, err
}

func (s *service) issue(u *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Sign(u.UserID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

// withTimeout runs fn under the per-call deadline. A deadline hit that the
// callee did not classify is reported as a store outage.
func (s *service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	err := fn(cctx)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && !isDomainError(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrStoreUnavailable, domain.ErrDeliveryFailed, domain.ErrChallengeFailed,
		domain.ErrUnauthorized, domain.ErrNotFound, domain.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
