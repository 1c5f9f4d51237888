package models

import "time"

// Session — запись о выданной сессии пользователя.
// Токен считается действительным, пока сессия не отозвана
// и не истек срок её действия. Один пользователь может иметь
// несколько одновременных сессий.
type Session struct {
	ID        string    `json:"id"`         // Идентификатор сессии (uuid)
	UserUID   string    `json:"user_uid"`   // Владелец сессии
	IssuedAt  time.Time `json:"issued_at"`  // Время выдачи
	ExpiresAt time.Time `json:"expires_at"` // Время истечения
	Revoked   bool      `json:"revoked"`    // Признак отзыва (logout)
}

// Valid сообщает, действительна ли сессия в момент времени now.
func (s *Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
