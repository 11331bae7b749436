package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

// PayPal адаптер PayPal Orders v2.
type PayPal struct {
	baseURL    string
	webhookID  string
	currency   string
	httpClient *http.Client
}

// NewPayPal создаёт адаптер. Токен доступа получается по client credentials
// и обновляется автоматически.
func NewPayPal(clientID, secret, webhookID, baseURL, currency string) *PayPal {
	baseURL = strings.TrimRight(baseURL, "/")
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})
	return &PayPal{
		baseURL:    baseURL,
		webhookID:  webhookID,
		currency:   currency,
		httpClient: cfg.Client(ctx),
	}
}

// Method возвращает paypal.
func (p *PayPal) Method() models.PaymentMethod {
	return models.MethodPayPal
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext map[string]string    `json:"application_context,omitempty"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Links         []paypalLink         `json:"links"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e paypalError) text() string {
	if len(e.Details) > 0 && e.Details[0].Description != "" {
		return e.Details[0].Description
	}
	return e.Message
}

func (p *PayPal) do(ctx context.Context, method, path string, in, out any, header map[string]string) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		var pe paypalError
		if json.Unmarshal(raw, &pe) == nil && pe.text() != "" {
			return resp.StatusCode, fmt.Errorf("%s", pe.text())
		}
		return resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// CreateCheckout создаёт заказ с intent CAPTURE и возвращает ссылку одобрения.
func (p *PayPal) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	subID := strconv.FormatInt(req.SubscriptionID, 10)
	order := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: "sub_" + subID,
			CustomID:    subID,
			Description: string(req.Plan.Name) + " plan",
			Amount: paypalAmount{
				CurrencyCode: p.currency,
				Value:        req.Plan.Price.StringFixed(2),
			},
		}},
		ApplicationContext: map[string]string{
			"brand_name":  "GeoEstate",
			"user_action": "PAY_NOW",
			"return_url":  req.SuccessURL,
			"cancel_url":  req.CancelURL,
		},
	}

	var out paypalOrder
	if _, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", order, &out, nil); err != nil {
		return nil, &InitiationError{Provider: models.MethodPayPal, Message: err.Error(), Err: err}
	}

	var approve string
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approve = l.Href
			break
		}
	}
	if approve == "" {
		return nil, &InitiationError{Provider: models.MethodPayPal, Message: "approval link is missing"}
	}

	return &Checkout{
		RedirectURL: approve,
		ProviderRef: out.ID,
		Amount:      req.Plan.MinorUnits(),
		Currency:    p.currency,
	}, nil
}

type paypalEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type paypalCapture struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CustomID          string `json:"custom_id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

func (p *PayPal) verify(ctx context.Context, body []byte, header http.Header) error {
	in := map[string]any{
		"auth_algo":         header.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          header.Get("PAYPAL-CERT-URL"),
		"transmission_id":   header.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  header.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": header.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        p.webhookID,
		"webhook_event":     json.RawMessage(body),
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if _, err := p.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", in, &out, nil); err != nil {
		return err
	}
	if out.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("verification status %q", out.VerificationStatus)
	}
	return nil
}

// capture списывает деньги по одобренному заказу. Повтор с тем же
// PayPal-Request-Id возвращает результат первого списания.
func (p *PayPal) capture(ctx context.Context, orderID string) (*paypalOrder, error) {
	var out paypalOrder
	_, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &out,
		map[string]string{"PayPal-Request-Id": "capture-" + orderID})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseWebhook проверяет событие через API PayPal и разбирает события заказа и списания.
// Одобренный заказ сразу списывается.
func (p *PayPal) ParseWebhook(ctx context.Context, body []byte, header http.Header) (*WebhookEvent, error) {
	const op = "paymentprovider.PayPal.ParseWebhook"
	if header.Get("PAYPAL-TRANSMISSION-SIG") == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}
	if err := p.verify(ctx, body, header); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrSignatureInvalid, err)
	}

	var event paypalEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ev := &WebhookEvent{
		Provider: models.MethodPayPal,
		ID:       event.ID,
		Type:     event.EventType,
		Kind:     EventIgnored,
	}

	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		var order paypalOrder
		if err := json.Unmarshal(event.Resource, &order); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ev.ProviderRef = order.ID
		if len(order.PurchaseUnits) > 0 {
			ev.SubscriptionID, _ = strconv.ParseInt(order.PurchaseUnits[0].CustomID, 10, 64)
		}
		captured, err := p.capture(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: capture %s: %w", op, order.ID, err)
		}
		if captured.Status == "COMPLETED" {
			ev.Kind = EventConfirmed
		}
	case "PAYMENT.CAPTURE.COMPLETED", "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		var c paypalCapture
		if err := json.Unmarshal(event.Resource, &c); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ev.ProviderRef = c.SupplementaryData.RelatedIDs.OrderID
		ev.SubscriptionID, _ = strconv.ParseInt(c.CustomID, 10, 64)
		if event.EventType == "PAYMENT.CAPTURE.COMPLETED" {
			ev.Kind = EventConfirmed
		} else {
			ev.Kind = EventFailed
		}
	}
	return ev, nil
}
