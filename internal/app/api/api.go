// Package api собирает HTTP API сервиса: хранилище, кеш, брокер, платёжные
// провайдеры, сервисы и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/geoestate/internal/api/handlers/health"
	"github.com/magabrotheeeer/geoestate/internal/cache"
	"github.com/magabrotheeeer/geoestate/internal/config"
	"github.com/magabrotheeeer/geoestate/internal/entitlement"
	"github.com/magabrotheeeer/geoestate/internal/lib/jwt"
	"github.com/magabrotheeeer/geoestate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/migrations"
	"github.com/magabrotheeeer/geoestate/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/geoestate/internal/services/auth"
	propertyservice "github.com/magabrotheeeer/geoestate/internal/services/property"
	subservice "github.com/magabrotheeeer/geoestate/internal/services/subscription"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
	"github.com/magabrotheeeer/geoestate/internal/websocket"
)

// App HTTP API сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
	hub    *websocket.Hub
}

// New подключает зависимости, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	resolver, err := entitlement.NewResolver(cfg.Entitlement.BasicCategories, cfg.Entitlement.PremiumExclusions)
	if err != nil {
		return nil, err
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitURL, cfg.RabbitRetries, cfg.RabbitDelay)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL, cfg.RefreshTokenTTL)
	hub := websocket.NewHub(logger)
	registry := paymentprovider.NewRegistry(Providers(cfg.Payments, logger)...)

	services := Services{
		Auth: authservice.NewService(db, tokens, publisher, cfg.TrialDays, logger),
		Subscription: subservice.NewService(db, cacheRedis, registry, publisher, hub,
			subservice.URLs{Success: cfg.Payments.SuccessURL, Cancel: cfg.Payments.CancelURL}, logger),
		Property: propertyservice.NewService(db, resolver, logger),
		Tokens:   tokens,
		Hub:      hub,
		Health: map[string]health.Check{
			"postgres": db.DB.PingContext,
			"redis": func(ctx context.Context) error {
				return cacheRedis.Db.Ping(ctx).Err()
			},
			"rabbitmq": func(context.Context) error {
				if conn.IsClosed() {
					return amqp.ErrClosed
				}
				return nil
			},
		},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services, rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst))

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
		hub:    hub,
	}, nil
}

// Providers создаёт адаптеры только для провайдеров с заданными ключами.
func Providers(cfg config.Payments, logger *slog.Logger) []paymentprovider.PaymentProvider {
	var providers []paymentprovider.PaymentProvider
	if cfg.Stripe.SecretKey != "" {
		providers = append(providers, paymentprovider.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency, nil))
	}
	if cfg.Paystack.SecretKey != "" {
		providers = append(providers, paymentprovider.NewPaystack(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.Paystack.Currency))
	}
	if cfg.PayPal.ClientID != "" && cfg.PayPal.Secret != "" {
		providers = append(providers, paymentprovider.NewPayPal(cfg.PayPal.ClientID, cfg.PayPal.Secret,
			cfg.PayPal.WebhookID, cfg.PayPal.BaseURL, cfg.PayPal.Currency))
	}
	for _, p := range providers {
		logger.Info("payment provider enabled", slog.String("provider", string(p.Method())))
	}
	return providers
}

// Run запускает HTTP сервер и корректно останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
