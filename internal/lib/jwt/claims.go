// Package jwt реализует генерацию и парсинг токенов доступа
// с пользовательскими claim-полями.
//
// Claims несут идентификатор сессии: токен сам по себе не дает доступа,
// сервис аутентификации дополнительно проверяет сессию в хранилище
// на отзыв и истечение срока.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает данные, хранящиеся в токене доступа.
type CustomClaims struct {
	SessionID            string `json:"sid"`   // Идентификатор сессии в хранилище
	UserUID              string `json:"uid"`   // Идентификатор пользователя
	Email                string `json:"email"` // Электронная почта
	Role                 string `json:"role"`  // Роль пользователя
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс для генерации и парсинга токенов доступа.
type Maker interface {
	// GenerateToken создает подписанный токен для сессии пользователя.
	GenerateToken(sessionID, userUID, email, role string) (string, error)
	// ParseToken проверяет подпись и срок действия, возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на секретном ключе HMAC
// и фиксированном времени жизни токена.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создает новый экземпляр MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
