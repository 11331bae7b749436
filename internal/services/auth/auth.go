// Package auth содержит регистрацию, вход и выпуск JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/geoestate/internal/lib/jwt"
	"github.com/magabrotheeeer/geoestate/internal/lib/password"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
)

var (
	// ErrEmailTaken email уже зарегистрирован.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials неверный email, пароль или токен обновления.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// TokenMaker выпускает и проверяет токены.
type TokenMaker interface {
	GeneratePair(userUID, email string) (jwt.Pair, error)
	ParseToken(tokenStr string, kind jwt.Kind) (*jwt.CustomClaims, error)
}

// Publisher публикует событие в обменник уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service отвечает за регистрацию, авторизацию и обновление токенов.
type Service struct {
	users     UserRepository
	tokens    TokenMaker
	publisher Publisher
	trialDays int
	log       *slog.Logger
	now       func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(users UserRepository, tokens TokenMaker, publisher Publisher, trialDays int, log *slog.Logger) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		publisher: publisher,
		trialDays: trialDays,
		log:       log,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя, открывает пробный период и выдаёт пару токенов.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*models.User, jwt.Pair, error) {
	const op = "auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{Email: normalizeEmail(email), PasswordHash: hashed}
	user.StartTrial(s.now().UTC(), s.trialDays)
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, jwt.Pair{}, ErrEmailTaken
		}
		return nil, jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.GeneratePair(user.UUID, user.Email)
	if err != nil {
		return nil, jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	n := models.Notification{Kind: models.EventUserRegistered, UserUID: user.UUID, Email: user.Email}
	if user.TrialEnd != nil {
		n.Until = *user.TrialEnd
	}
	if err := s.publisher.Publish(ctx, models.EventUserRegistered, n); err != nil {
		s.log.Warn("failed to publish registration event", slog.String("user_id", user.UUID), sl.Err(err))
	}

	s.log.Info("user registered", slog.String("user_id", user.UUID))
	return user, pair, nil
}

// Login проверяет пароль и выдаёт пару токенов.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (jwt.Pair, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jwt.Pair{}, ErrInvalidCredentials
		}
		return jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return jwt.Pair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user.UUID, user.Email)
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Refresh обменивает токен обновления на новую пару.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (jwt.Pair, error) {
	const op = "auth.Refresh"
	claims, err := s.tokens.ParseToken(refreshToken, jwt.Refresh)
	if err != nil {
		return jwt.Pair{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUser(ctx, claims.UserUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jwt.Pair{}, ErrInvalidCredentials
		}
		return jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.GeneratePair(user.UUID, user.Email)
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Profile возвращает пользователя по UID.
func (s *Service) Profile(ctx context.Context, userUID string) (*models.User, error) {
	const op = "auth.Profile"
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
