// Package webhook принимает уведомления платёжных провайдеров.
//
// Тело передаётся провайдеру без изменений: подпись проверяется по сырым байтам.
// Неизвестные и повторные события подтверждаются ответом 200.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/paymentprovider"
	"github.com/magabrotheeeer/geoestate/internal/services/subscription"
)

const maxBodyBytes = 1 << 20

// Service применяет вебхук к подписке.
type Service interface {
	HandleWebhook(ctx context.Context, method models.PaymentMethod, body []byte, header http.Header) error
}

// Handler обработчик вебхуков.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вебхук провайдера
// @Tags Payments
// @Accept json
// @Produce json
// @Param provider path string true "stripe, paystack или paypal"
// @Success 200 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Подпись не прошла проверку"
// @Failure 404 {object} response.ErrorResponse "Провайдер не настроен"
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/webhooks/{provider} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	method := models.PaymentMethod(chi.URLParam(r, "provider"))
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("provider", string(method)),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	err = h.service.HandleWebhook(r.Context(), method, body, r.Header)
	switch {
	case err == nil:
		render.JSON(w, r, response.OKWithData(nil))
	case errors.Is(err, paymentprovider.ErrSignatureInvalid):
		log.Warn("webhook signature invalid")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(paymentprovider.ErrSignatureInvalid.Error()))
	case errors.Is(err, subscription.ErrInvalidPaymentMethod):
		log.Warn("webhook for unknown provider")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown payment provider"))
	default:
		log.Error("failed to process webhook", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process webhook"))
	}
}
