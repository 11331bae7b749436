// Package mysubscription отдаёт подписку текущего пользователя, создавая её при первом запросе.
package mysubscription

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

// Service возвращает подписку пользователя.
type Service interface {
	MySubscription(ctx context.Context, userUID string) (*models.Subscription, error)
}

// Result подписка с вычисленным признаком действия.
type Result struct {
	*models.Subscription
	IsValid bool `json:"is_valid"`
}

// Handler обработчик подписки пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, now: time.Now}
}

// ServeHTTP godoc
// @Summary Моя подписка
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.OKResponse{data=Result}
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/my-subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.mysubscription"
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

	sub, err := h.service.MySubscription(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get subscription"))
		return
	}
	render.JSON(w, r, response.OKWithData(Result{Subscription: sub, IsValid: sub.IsValid(h.now())}))
}
