// Package models содержит доменную модель консоли: пользователей,
// сессии, события аудита и сущности дашбордов.
package models

import "time"

// Роли пользователей. Единственный канонический набор ролей,
// используемый и хранилищем учетных записей, и таблицей RBAC.
const (
	RoleAdmin   = "admin"
	RoleOwner   = "owner"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// Статусы учетной записи. Пользователи никогда не удаляются физически,
// только переводятся в неактивный статус.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

// User представляет зарегистрированного пользователя консоли.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта (уникальная)
	Name         string    // Отображаемое имя
	PasswordHash string    // bcrypt-хэш пароля
	Role         string    // Роль: admin, owner, analyst или viewer
	Status       string    // Статус учетной записи
	CreatedAt    time.Time // Дата создания
	UpdatedAt    time.Time // Дата последнего изменения
}

// ValidRole сообщает, входит ли роль в канонический набор.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOwner, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// ValidStatus сообщает, входит ли статус в допустимый набор.
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended:
		return true
	}
	return false
}

// PublicUser — представление пользователя для ответов API, без хэша пароля.
type PublicUser struct {
	UID    string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Public возвращает представление пользователя без чувствительных полей.
func (u *User) Public() PublicUser {
	return PublicUser{
		UID:    u.UID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		Status: u.Status,
	}
}
