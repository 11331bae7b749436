package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

// Stripe адаптер Stripe Checkout.
type Stripe struct {
	api           *client.API
	webhookSecret string
	currency      string
}

// NewStripe создаёт адаптер. backends == nil означает боевые адреса Stripe.
func NewStripe(secretKey, webhookSecret, currency string, backends *stripe.Backends) *Stripe {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{
		api:           api,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

// Method возвращает stripe.
func (s *Stripe) Method() models.PaymentMethod {
	return models.MethodStripe
}

// CreateCheckout создаёт Checkout Session на одну оплату тарифа.
func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	amount := req.Plan.MinorUnits()
	subID := strconv.FormatInt(req.SubscriptionID, 10)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(subID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(string(req.Plan.Name) + " plan"),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("subscription_id", subID)
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		msg := "failed to create checkout session"
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			msg = stripeErr.Msg
		}
		return nil, &InitiationError{Provider: models.MethodStripe, Message: msg, Err: err}
	}

	return &Checkout{
		RedirectURL: sess.URL,
		ProviderRef: sess.ID,
		Amount:      amount,
		Currency:    s.currency,
	}, nil
}

// ParseWebhook проверяет заголовок Stripe-Signature и разбирает события Checkout.
func (s *Stripe) ParseWebhook(_ context.Context, body []byte, header http.Header) (*WebhookEvent, error) {
	const op = "paymentprovider.Stripe.ParseWebhook"
	event, err := webhook.ConstructEventWithOptions(
		body,
		header.Get("Stripe-Signature"),
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrSignatureInvalid, err)
	}

	ev := &WebhookEvent{
		Provider: models.MethodStripe,
		ID:       event.ID,
		Type:     string(event.Type),
		Kind:     EventIgnored,
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed", "checkout.session.expired":
	default:
		return ev, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ev.ProviderRef = sess.ID
	id, err := strconv.ParseInt(sess.ClientReferenceID, 10, 64)
	if err != nil {
		return ev, nil
	}
	ev.SubscriptionID = id

	switch event.Type {
	case "checkout.session.completed":
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			ev.Kind = EventConfirmed
		}
	case "checkout.session.async_payment_succeeded":
		ev.Kind = EventConfirmed
	default:
		ev.Kind = EventFailed
	}
	return ev, nil
}
