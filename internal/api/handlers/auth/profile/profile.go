// Package profile отдаёт профиль текущего пользователя.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/services/auth"
)

// Service возвращает пользователя.
type Service interface {
	Profile(ctx context.Context, userUID string) (*models.User, error)
}

// Handler обработчик профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль
// @Description Идентификатор, email и состояние пробного периода.
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.OKResponse{data=models.User}
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /accounts/profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"
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

	user, err := h.service.Profile(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(auth.ErrUserNotFound.Error()))
			return
		}
		log.Error("failed to load profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}
