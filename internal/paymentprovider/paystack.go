package paymentprovider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

// Paystack адаптер Paystack Transactions API.
type Paystack struct {
	secretKey  string
	baseURL    string
	currency   string
	httpClient *http.Client
}

// NewPaystack создаёт адаптер. Секретный ключ передаётся как Bearer-токен.
func NewPaystack(secretKey, baseURL, currency string) *Paystack {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})
	return &Paystack{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		currency:  currency,
		httpClient: oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: secretKey,
			TokenType:   "Bearer",
		})),
	}
}

// Method возвращает paystack.
func (p *Paystack) Method() models.PaymentMethod {
	return models.MethodPaystack
}

type paystackInitRequest struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// CreateCheckout инициализирует транзакцию и возвращает ссылку на оплату.
func (p *Paystack) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	amount := req.Plan.MinorUnits()
	body, err := json.Marshal(paystackInitRequest{
		Email:       req.Email,
		Amount:      strconv.FormatInt(amount, 10),
		Currency:    p.currency,
		Reference:   reference(req.SubscriptionID, uuid.NewString()[:8]),
		CallbackURL: req.SuccessURL,
		Metadata: map[string]string{
			"subscription_id": strconv.FormatInt(req.SubscriptionID, 10),
			"plan":            string(req.Plan.Name),
		},
	})
	if err != nil {
		return nil, &InitiationError{Provider: models.MethodPaystack, Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, &InitiationError{Provider: models.MethodPaystack, Message: "failed to build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &InitiationError{Provider: models.MethodPaystack, Message: "paystack is unavailable", Err: err}
	}
	defer resp.Body.Close()

	var out paystackInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &InitiationError{Provider: models.MethodPaystack, Message: "unexpected status: " + resp.Status, Err: err}
	}
	if resp.StatusCode != http.StatusOK || !out.Status {
		msg := out.Message
		if msg == "" {
			msg = "unexpected status: " + resp.Status
		}
		return nil, &InitiationError{Provider: models.MethodPaystack, Message: msg}
	}

	return &Checkout{
		RedirectURL: out.Data.AuthorizationURL,
		ProviderRef: out.Data.Reference,
		Amount:      amount,
		Currency:    p.currency,
	}, nil
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64          `json:"id"`
		Reference string         `json:"reference"`
		Status    string         `json:"status"`
		Metadata  map[string]any `json:"metadata"`
	} `json:"data"`
}

// Sign подпись тела вебхука, которую Paystack кладёт в x-paystack-signature.
func (p *Paystack) Sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook проверяет HMAC-SHA512 подпись и разбирает события charge.*.
func (p *Paystack) ParseWebhook(_ context.Context, body []byte, header http.Header) (*WebhookEvent, error) {
	const op = "paymentprovider.Paystack.ParseWebhook"
	got, err := hex.DecodeString(header.Get("x-paystack-signature"))
	if err != nil || len(got) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}
	want, _ := hex.DecodeString(p.Sign(body))
	if !hmac.Equal(got, want) {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}

	var event paystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ev := &WebhookEvent{
		Provider:    models.MethodPaystack,
		ID:          event.Event + ":" + strconv.FormatInt(event.Data.ID, 10) + ":" + event.Data.Reference,
		Type:        event.Event,
		Kind:        EventIgnored,
		ProviderRef: event.Data.Reference,
	}
	ev.SubscriptionID = paystackSubscriptionID(event.Data.Metadata, event.Data.Reference)

	switch {
	case event.Event == "charge.success" && event.Data.Status == "success":
		ev.Kind = EventConfirmed
	case strings.HasPrefix(event.Event, "charge.") && (event.Data.Status == "failed" || event.Data.Status == "abandoned"):
		ev.Kind = EventFailed
	}
	return ev, nil
}

func paystackSubscriptionID(metadata map[string]any, ref string) int64 {
	switch v := metadata["subscription_id"].(type) {
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	case float64:
		return int64(v)
	}
	id, _ := subscriptionFromReference(ref)
	return id
}
