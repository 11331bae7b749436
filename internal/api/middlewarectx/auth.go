// Package middlewarectx содержит HTTP middleware проверки JWT и ограничения частоты запросов.
//
// JWTMiddleware проверяет токен доступа из заголовка Authorization (или query
// параметра token для WebSocket) и кладёт UID и email пользователя в контекст.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/geoestate/internal/api/response"
	"github.com/magabrotheeeer/geoestate/internal/lib/jwt"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID ключ для UID пользователя в контексте.
	UserUID Key = "user_uid"
	// Email ключ для email пользователя в контексте.
	Email Key = "email"
)

// TokenParser проверяет JWT токен.
type TokenParser interface {
	ParseToken(tokenStr string, kind jwt.Kind) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает middleware, пропускающий только запросы с валидным токеном доступа.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := bearerToken(r)
			if !ok {
				log.Warn("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			claims, err := parser.ParseToken(tokenStr, jwt.Access)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, claims.UserUID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// User возвращает UID и email пользователя, положенные JWTMiddleware.
func User(ctx context.Context) (userUID, email string, ok bool) {
	userUID, _ = ctx.Value(UserUID).(string)
	email, _ = ctx.Value(Email).(string)
	return userUID, email, userUID != ""
}
