// Package subscription содержит бизнес-логику тарифов, подписок и оплаты:
// каталог планов с кешированием, инициацию платежа и обработку вебхуков.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/magabrotheeeer/geoestate/internal/lib/metrics"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/paymentprovider"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
	"github.com/magabrotheeeer/geoestate/internal/websocket"
)

const (
	// PlansCacheKey ключ каталога тарифов в кеше.
	PlansCacheKey = "plans:all"
	plansTTL      = 10 * time.Minute
	webhookTTL    = 72 * time.Hour
)

var (
	// ErrPlanNotFound тариф с указанным идентификатором не существует.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrInvalidPaymentMethod способ оплаты не поддерживается или не настроен.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrSubscriptionNotFound подписка не найдена или принадлежит другому пользователю.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	ListPlans(ctx context.Context) ([]*models.Plan, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetOrCreateSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	MarkSubscriptionPending(ctx context.Context, id, planID int64, method models.PaymentMethod) error
	CreatePayment(ctx context.Context, p *models.Payment) (int64, error)
	ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error)
	ConfirmPayment(ctx context.Context, provider models.PaymentMethod, providerRef string, now time.Time) (*models.Subscription, bool, error)
	FailPayment(ctx context.Context, provider models.PaymentMethod, providerRef string) (*models.Subscription, error)
}

// Cache описывает методы для кэширования данных и дедупликации событий.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, key string) error
}

// Providers возвращает адаптер провайдера по способу оплаты.
type Providers interface {
	Get(method models.PaymentMethod) (paymentprovider.PaymentProvider, error)
}

// Publisher публикует событие в обменник уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Notifier рассылает статус оплаты подключённым клиентам.
type Notifier interface {
	PublishPayment(update websocket.PaymentUpdate)
}

// URLs адреса возврата пользователя после оплаты.
type URLs struct {
	Success string
	Cancel  string
}

// Initiation результат инициации оплаты.
type Initiation struct {
	SubscriptionID int64                `json:"subscription_id"`
	PaymentID      int64                `json:"payment_id"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	RedirectURL    string               `json:"redirect_url"`
	ProviderRef    string               `json:"provider_ref"`
	Amount         int64                `json:"amount"`
	Currency       string               `json:"currency"`
}

// Service реализует жизненный цикл подписки.
type Service struct {
	repo      Repository
	cache     Cache
	providers Providers
	publisher Publisher
	notifier  Notifier
	urls      URLs
	log       *slog.Logger
	now       func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, cache Cache, providers Providers, publisher Publisher,
	notifier Notifier, urls URLs, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		providers: providers,
		publisher: publisher,
		notifier:  notifier,
		urls:      urls,
		log:       log,
		now:       time.Now,
	}
}

// ListPlans возвращает каталог тарифов, сначала пытаясь прочитать его из кеша.
func (s *Service) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "subscription.ListPlans"
	var plans []*models.Plan
	found, err := s.cache.Get(ctx, PlansCacheKey, &plans)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found {
		return plans, nil
	}

	plans, err = s.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, PlansCacheKey, plans, plansTTL); err != nil {
		s.log.Warn("failed to cache plans", sl.Err(err))
	}
	return plans, nil
}

// MySubscription возвращает подписку пользователя, создавая пустую при первом обращении.
func (s *Service) MySubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "subscription.MySubscription"
	sub, err := s.repo.GetOrCreateSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// SubscriptionForUser возвращает подписку по идентификатору, если она принадлежит пользователю.
func (s *Service) SubscriptionForUser(ctx context.Context, userUID string, id int64) (*models.Subscription, error) {
	const op = "subscription.SubscriptionForUser"
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.UserUID != userUID {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// ListPayments возвращает платёжный журнал пользователя.
func (s *Service) ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "subscription.ListPayments"
	payments, err := s.repo.ListPayments(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// InitiatePayment создаёт платёж у провайдера по цене тарифа и переводит подписку в pending.
// Действующий доступ при повторной оплате сохраняется до подтверждения.
func (s *Service) InitiatePayment(ctx context.Context, userUID, email string, planID int64,
	method models.PaymentMethod) (*Initiation, error) {
	const op = "subscription.InitiatePayment"
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	provider, err := s.providers.Get(method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPaymentMethod, err)
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.repo.GetOrCreateSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	checkout, err := provider.CreateCheckout(ctx, paymentprovider.CheckoutRequest{
		SubscriptionID: sub.ID,
		Plan:           *plan,
		Email:          email,
		SuccessURL:     s.urls.Success,
		CancelURL:      s.urls.Cancel,
	})
	if err != nil {
		metrics.PaymentsInitiated.WithLabelValues(string(method), "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.MarkSubscriptionPending(ctx, sub.ID, plan.ID, method); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	payment := &models.Payment{
		SubscriptionID: sub.ID,
		UserUID:        userUID,
		PlanID:         plan.ID,
		Provider:       method,
		ProviderRef:    checkout.ProviderRef,
		Amount:         checkout.Amount,
		Currency:       checkout.Currency,
		Status:         models.StatusPending,
	}
	paymentID, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PaymentsInitiated.WithLabelValues(string(method), "ok").Inc()
	s.log.Info("payment initiated",
		slog.Int64("subscription_id", sub.ID),
		slog.String("plan", string(plan.Name)),
		slog.String("provider", string(method)),
		slog.String("provider_ref", checkout.ProviderRef))

	return &Initiation{
		SubscriptionID: sub.ID,
		PaymentID:      paymentID,
		PaymentMethod:  method,
		RedirectURL:    checkout.RedirectURL,
		ProviderRef:    checkout.ProviderRef,
		Amount:         checkout.Amount,
		Currency:       checkout.Currency,
	}, nil
}

// HandleWebhook проверяет вебхук провайдера и применяет его к подписке.
// Неизвестные и повторные события подтверждаются без изменений состояния.
func (s *Service) HandleWebhook(ctx context.Context, method models.PaymentMethod, body []byte, header http.Header) error {
	const op = "subscription.HandleWebhook"
	provider, err := s.providers.Get(method)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPaymentMethod, err)
	}
	result := func(r string) {
		metrics.WebhooksReceived.WithLabelValues(string(method), r).Inc()
	}

	event, err := provider.ParseWebhook(ctx, body, header)
	if err != nil {
		if errors.Is(err, paymentprovider.ErrSignatureInvalid) {
			result("invalid_signature")
			return paymentprovider.ErrSignatureInvalid
		}
		result("error")
		return fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(
		slog.String("provider", string(method)),
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type))

	if event.Kind == paymentprovider.EventIgnored {
		result("ignored")
		log.Debug("webhook event ignored")
		return nil
	}

	key := fmt.Sprintf("webhook:%s:%s", method, event.ID)
	if event.ID != "" {
		first, err := s.cache.MarkOnce(ctx, key, webhookTTL)
		if err != nil {
			log.Warn("webhook dedup unavailable", sl.Err(err))
			first = true
		}
		if !first {
			result("duplicate")
			log.Info("duplicate webhook event")
			return nil
		}
	}

	switch event.Kind {
	case paymentprovider.EventConfirmed:
		_, err = s.OnPaymentConfirmed(ctx, method, event.ProviderRef)
	case paymentprovider.EventFailed:
		_, err = s.OnPaymentFailed(ctx, method, event.ProviderRef)
	}
	if err != nil {
		result("error")
		if event.ID != "" {
			if uerr := s.cache.Unmark(ctx, key); uerr != nil {
				log.Warn("failed to unmark webhook event", sl.Err(uerr))
			}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	result(string(event.Kind))
	return nil
}

// OnPaymentConfirmed отмечает платёж оплаченным и активирует подписку на срок тарифа.
// Повторный вызов не продлевает срок. Неизвестный платёж игнорируется, возвращается nil.
func (s *Service) OnPaymentConfirmed(ctx context.Context, method models.PaymentMethod, providerRef string) (*models.Subscription, error) {
	const op = "subscription.OnPaymentConfirmed"
	sub, activated, err := s.repo.ConfirmPayment(ctx, method, providerRef, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("confirmation for unknown payment",
				slog.String("provider", string(method)),
				slog.String("provider_ref", providerRef))
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !activated {
		s.log.Info("payment already applied", slog.Int64("subscription_id", sub.ID))
		return sub, nil
	}

	s.log.Info("subscription activated",
		slog.Int64("subscription_id", sub.ID),
		slog.String("provider_ref", providerRef))
	s.notifier.PublishPayment(PaymentState(sub))
	s.publishActivated(ctx, sub)
	return sub, nil
}

// OnPaymentFailed отмечает ожидающий платёж неуспешным.
func (s *Service) OnPaymentFailed(ctx context.Context, method models.PaymentMethod, providerRef string) (*models.Subscription, error) {
	const op = "subscription.OnPaymentFailed"
	sub, err := s.repo.FailPayment(ctx, method, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("failure for unknown or settled payment",
				slog.String("provider", string(method)),
				slog.String("provider_ref", providerRef))
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notifier.PublishPayment(PaymentState(sub))
	return sub, nil
}

func (s *Service) publishActivated(ctx context.Context, sub *models.Subscription) {
	user, err := s.repo.GetUser(ctx, sub.UserUID)
	if err != nil {
		s.log.Warn("failed to load user for activation event", slog.String("user_id", sub.UserUID), sl.Err(err))
		return
	}
	n := models.Notification{
		Kind:    models.EventSubscriptionActivated,
		UserUID: user.UUID,
		Email:   user.Email,
	}
	if sub.Plan != nil {
		n.PlanName = string(sub.Plan.Name)
	}
	if sub.EndDate != nil {
		n.Until = *sub.EndDate
	}
	if err := s.publisher.Publish(ctx, models.EventSubscriptionActivated, n); err != nil {
		s.log.Warn("failed to publish activation event", slog.Int64("subscription_id", sub.ID), sl.Err(err))
	}
}

// PaymentState текущее состояние оплаты подписки для клиента WebSocket.
func PaymentState(sub *models.Subscription) websocket.PaymentUpdate {
	return websocket.PaymentUpdate{
		SubscriptionID: sub.ID,
		Status:         string(sub.PaymentStatus),
		IsActive:       sub.IsActive,
		EndDate:        sub.EndDate,
	}
}
