// Package jwt реализует генерацию и парсинг JWT токенов доступа и обновления.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind тип токена.
type Kind string

const (
	// Access короткоживущий токен для запросов к API.
	Access Kind = "access"
	// Refresh токен для получения новой пары.
	Refresh Kind = "refresh"
)

// ErrWrongKind токен валиден, но предназначен для другого использования.
var ErrWrongKind = errors.New("wrong token kind")

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserUID string `json:"uid"`
	Email   string `json:"email"`
	Kind    Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Pair пара токенов, отдаваемая клиенту при входе.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Maker подписывает и проверяет токены секретным ключом (HS256).
type Maker struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTMaker создаёт Maker на основе секретного ключа и времени жизни токенов.
func NewJWTMaker(secretKey string, accessTTL, refreshTTL time.Duration) *Maker {
	return &Maker{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateToken создаёт токен заданного типа.
func (m *Maker) GenerateToken(userUID, email string, kind Kind) (string, error) {
	const op = "jwt.GenerateToken"
	ttl := m.accessTTL
	if kind == Refresh {
		ttl = m.refreshTTL
	}
	now := time.Now()
	claims := CustomClaims{
		UserUID: userUID,
		Email:   email,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// GeneratePair создаёт токены доступа и обновления.
func (m *Maker) GeneratePair(userUID, email string) (Pair, error) {
	access, err := m.GenerateToken(userUID, email, Access)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.GenerateToken(userUID, email, Refresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// ParseToken проверяет подпись, срок действия и тип токена.
func (m *Maker) ParseToken(tokenStr string, kind Kind) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongKind)
	}
	return claims, nil
}
