// Package paymentprovider содержит адаптеры платёжных провайдеров:
// создание checkout-сессии и разбор подписанных вебхуков.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

var (
	// ErrSignatureInvalid подпись вебхука не прошла проверку.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	// ErrProviderInitiation провайдер отказал в создании платежа.
	ErrProviderInitiation = errors.New("payment initiation failed")
	// ErrNotConfigured провайдер не настроен.
	ErrNotConfigured = errors.New("payment provider is not configured")
)

// InitiationError ошибка провайдера при создании платежа. Message можно
// показывать клиенту.
type InitiationError struct {
	Provider models.PaymentMethod
	Message  string
	Err      error
}

func (e *InitiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Is сопоставляет ошибку с ErrProviderInitiation.
func (e *InitiationError) Is(target error) bool {
	return target == ErrProviderInitiation
}

func (e *InitiationError) Unwrap() error {
	return e.Err
}

// CheckoutRequest данные для создания платежа.
type CheckoutRequest struct {
	SubscriptionID int64
	Plan           models.Plan
	Email          string
	SuccessURL     string
	CancelURL      string
}

// Checkout результат создания платежа у провайдера.
type Checkout struct {
	RedirectURL string
	ProviderRef string
	Amount      int64
	Currency    string
}

// EventKind что означает вебхук для подписки.
type EventKind string

const (
	EventConfirmed EventKind = "confirmed"
	EventFailed    EventKind = "failed"
	EventIgnored   EventKind = "ignored"
)

// WebhookEvent проверенное событие провайдера.
type WebhookEvent struct {
	Provider       models.PaymentMethod
	ID             string
	Type           string
	Kind           EventKind
	SubscriptionID int64
	ProviderRef    string
}

// PaymentProvider адаптер одного провайдера.
type PaymentProvider interface {
	Method() models.PaymentMethod
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	ParseWebhook(ctx context.Context, body []byte, header http.Header) (*WebhookEvent, error)
}

// Registry набор настроенных провайдеров.
type Registry struct {
	providers map[models.PaymentMethod]PaymentProvider
}

// NewRegistry собирает Registry из провайдеров; nil пропускаются.
func NewRegistry(providers ...PaymentProvider) *Registry {
	r := &Registry{providers: make(map[models.PaymentMethod]PaymentProvider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Method()] = p
		}
	}
	return r
}

// Get возвращает провайдера по способу оплаты.
func (r *Registry) Get(method models.PaymentMethod) (PaymentProvider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, ErrNotConfigured)
	}
	return p, nil
}

// reference строит уникальную ссылку платежа для подписки.
func reference(subscriptionID int64, suffix string) string {
	return fmt.Sprintf("sub_%d_%s", subscriptionID, suffix)
}

// subscriptionFromReference извлекает идентификатор подписки из ссылки reference.
func subscriptionFromReference(ref string) (int64, bool) {
	rest, ok := strings.CutPrefix(ref, "sub_")
	if !ok {
		return 0, false
	}
	idPart, _, _ := strings.Cut(rest, "_")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
