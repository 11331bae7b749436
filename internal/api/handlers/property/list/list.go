// Package list отдаёт каталог объектов недвижимости в формате GeoJSON.
//
// Набор объектов зависит от пробного периода и тарифа пользователя.
package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/entitlement"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/services/property"
)

// Service возвращает объекты, доступные пользователю.
type Service interface {
	List(ctx context.Context, userUID string) (*models.FeatureCollection, error)
}

// Handler обработчик каталога объектов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Объекты недвижимости
// @Description GeoJSON FeatureCollection, отфильтрованная по пробному периоду или тарифу.
// @Tags Properties
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.FeatureCollection
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Нет подписки или срок истёк"
// @Failure 500 {object} response.ErrorResponse
// @Router /properties/ [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.property.list"
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

	fc, err := h.service.List(r.Context(), userUID)
	switch {
	case err == nil:
		render.JSON(w, r, fc)
	case errors.Is(err, entitlement.ErrNoSubscription), errors.Is(err, entitlement.ErrSubscriptionExpired):
		log.Info("access denied", slog.String("reason", err.Error()))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error(err.Error()))
	case errors.Is(err, property.ErrUserNotFound):
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
	default:
		log.Error("failed to list properties", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list properties"))
	}
}
