// Package initiate реализует HTTP-обработчик инициации оплаты подписки.
//
// Handler проверяет тело запроса, создаёт платёж у выбранного провайдера и
// возвращает ссылку, по которой пользователь завершает оплату.
package initiate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/paymentprovider"
	"github.com/magabrotheeeer/geoestate/internal/services/subscription"
)

// Request тело запроса инициации оплаты.
type Request struct {
	PlanID        int64  `json:"plan_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// Service создаёт платёж.
type Service interface {
	InitiatePayment(ctx context.Context, userUID, email string, planID int64,
		method models.PaymentMethod) (*subscription.Initiation, error)
}

// Handler обработчик инициации оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Инициировать оплату
// @Description Переводит подписку в pending и создаёт checkout у провайдера (stripe, paystack, paypal).
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Тариф и способ оплаты"
// @Success 200 {object} response.OKResponse{data=subscription.Initiation}
// @Failure 400 {object} response.ErrorResponse "Тариф не найден, неверный способ оплаты или отказ провайдера"
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/initiate-payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.initiate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, email, ok := middlewarectx.User(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("payment requested", slog.Int64("plan_id", req.PlanID), slog.String("method", req.PaymentMethod))

	result, err := h.service.InitiatePayment(r.Context(), userUID, email, req.PlanID, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		var initErr *paymentprovider.InitiationError
		switch {
		case errors.Is(err, subscription.ErrPlanNotFound):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(subscription.ErrPlanNotFound.Error()))
		case errors.Is(err, subscription.ErrInvalidPaymentMethod):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(subscription.ErrInvalidPaymentMethod.Error()))
		case errors.As(err, &initErr):
			log.Warn("provider refused payment", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(initErr.Message))
		default:
			log.Error("failed to initiate payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not initiate payment"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
