package register

import (
	"context"

	"github.com/magabrotheeeer/geoestate/internal/lib/jwt"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

// Service регистрирует пользователя.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.User, jwt.Pair, error)
}
