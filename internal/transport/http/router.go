package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/rast-auth-api/internal/application/auth"
	"github.com/rast-auth-api/internal/application/notification"
	"github.com/rast-auth-api/internal/application/session"
	"github.com/rast-auth-api/internal/config"
	"github.com/rast-auth-api/internal/transport/http/handler"
	appmiddleware "github.com/rast-auth-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds background
// work owned by the router, such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		limit = appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst).Limit
	}

	sender := notification.NewSender(deps.Mailer, cfg.OTPTTL, cfg.ExternalCallTimeout)
	authSvc := auth.NewService(auth.ServiceDeps{
		OTPStore:    deps.OTPStore,
		UserStore:   deps.UserRepo,
		Notifier:    sender,
		Challenge:   deps.Challenge,
		Tokens:      deps.JWTProvider,
		Google:      deps.Google,
		OTPTTL:      cfg.OTPTTL,
		BcryptCost:  cfg.BcryptCost,
		CallTimeout: cfg.ExternalCallTimeout,
	})
	sessionSvc := session.NewService(deps.UserRepo)

	authH := handler.NewAuthHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	healthH := handler.NewHealthHandler(map[string]handler.Checker{
		"users": deps.UserRepo.Ping,
		"otps":  deps.OTPStore.Ping,
		"smtp":  deps.Mailer.Verify,
	})

	r.Get("/health/live", healthH.Live)
	r.Get("/health/ready", healthH.Ready)

	r.Route("/auth", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.With(limit).Post("/signup", authH.Signup)
		r.With(limit).Post("/send-otp", authH.Signup)
		r.With(limit).Post("/verify-signup", authH.VerifySignup)
		r.With(limit).Post("/login", authH.Login)
		if deps.Google != nil {
			r.With(limit).Post("/google", authH.Google)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))
			r.Get("/me", sessionH.Me)
		})
	})

	return r
}
