// Package paymentstatus открывает WebSocket со статусом оплаты подписки.
package paymentstatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/services/subscription"
	"github.com/magabrotheeeer/geoestate/internal/websocket"
)

// Service возвращает подписку, если она принадлежит пользователю.
type Service interface {
	SubscriptionForUser(ctx context.Context, userUID string, id int64) (*models.Subscription, error)
}

// Hub обслуживает WebSocket соединения.
type Hub interface {
	Serve(w http.ResponseWriter, r *http.Request, subscriptionID int64, current websocket.PaymentUpdate)
}

// Handler обработчик WebSocket статуса оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
	hub     Hub
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, hub Hub) *Handler {
	return &Handler{log: log, service: service, hub: hub}
}

// ServeHTTP godoc
// @Summary Статус оплаты (WebSocket)
// @Description Сразу отправляет текущее состояние, затем каждое изменение от вебхуков.
// @Tags Payments
// @Param subscription_id path int true "Идентификатор подписки"
// @Param token query string true "Токен доступа"
// @Success 101
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /ws/payment/{subscription_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ws.paymentstatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, _, ok := middlewarectx.User(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "subscription_id"), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription id"))
		return
	}

	sub, err := h.service.SubscriptionForUser(r.Context(), userUID, id)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(subscription.ErrSubscriptionNotFound.Error()))
			return
		}
		log.Error("failed to load subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	h.hub.Serve(w, r, sub.ID, subscription.PaymentState(sub))
}
