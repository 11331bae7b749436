// Package register реализует HTTP-обработчик регистрации пользователя.
//
// После создания аккаунта сразу открывается пробный период и выдаётся пара токенов.
package register

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/jwt"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/services/auth"
)

// Request входные данные для регистрации.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Result данные ответа на регистрацию.
type Result struct {
	User   *models.User `json:"user"`
	Tokens jwt.Pair     `json:"tokens"`
}

// Handler обработчик регистрации.
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
// @Summary Регистрация пользователя
// @Description Создаёт пользователя, открывает 7-дневный пробный период и возвращает токены.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body Request true "Email и пароль"
// @Success 201 {object} response.OKResponse{data=Result}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse
// @Router /accounts/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, pair, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			log.Info("email already taken")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(auth.ErrEmailTaken.Error()))
			return
		}
		log.Error("registration failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to register user"))
		return
	}

	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(Result{User: user, Tokens: pair}))
}
