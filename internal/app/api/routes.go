package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/geoestate/docs"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/auth/login"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/auth/profile"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/auth/refresh"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/auth/register"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/health"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/payment/webhook"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/property/list"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/subscription/initiate"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/subscription/mysubscription"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/subscription/payments"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/subscription/plans"
	"github.com/magabrotheeeer/geoestate/internal/api/handlers/ws/paymentstatus"
	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	authservice "github.com/magabrotheeeer/geoestate/internal/services/auth"
	propertyservice "github.com/magabrotheeeer/geoestate/internal/services/property"
	subservice "github.com/magabrotheeeer/geoestate/internal/services/subscription"
)

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Auth         *authservice.Service
	Subscription *subservice.Service
	Property     *propertyservice.Service
	Tokens       middlewarectx.TokenParser
	Hub          paymentstatus.Hub
	Health       map[string]health.Check
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, limiter *rate.Limiter) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// вебхуки приходят от провайдеров и не ограничиваются
		r.Post("/subscriptions/webhooks/{provider}", webhook.New(logger, s.Subscription).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))

			r.Post("/accounts/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/accounts/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/accounts/token/refresh", refresh.New(logger, s.Auth).ServeHTTP)
			r.Get("/subscriptions/plans", plans.New(logger, s.Subscription).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
				r.Get("/accounts/profile", profile.New(logger, s.Auth).ServeHTTP)
				r.Get("/subscriptions/my-subscription", mysubscription.New(logger, s.Subscription).ServeHTTP)
				r.Post("/subscriptions/initiate-payment", initiate.New(logger, s.Subscription).ServeHTTP)
				r.Get("/subscriptions/payments", payments.New(logger, s.Subscription).ServeHTTP)
				r.Get("/properties/", list.New(logger, s.Property).ServeHTTP)
				r.Get("/ws/payment/{subscription_id}", paymentstatus.New(logger, s.Subscription, s.Hub).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
