// Package sessions реализует хранилище выданных сессий поверх redis.
//
// Запись сессии живет в redis с TTL, равным сроку действия токена.
// Отзыв (logout) не удаляет ключ, а помечает сессию отозванной до
// естественного истечения: повторный logout по той же сессии
// различим и возвращает false.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/insight-console/internal/cache"
	"github.com/magabrotheeeer/insight-console/internal/models"
)

// Store — хранилище сессий.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// New создает хранилище сессий с заданным временем жизни.
func New(c *cache.Cache, ttl time.Duration) *Store {
	return &Store{
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Now возвращает текущее время по часам хранилища.
// В тестах часы подменяются.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Create выдает новую сессию для пользователя. Пользователь может
// иметь несколько одновременных сессий.
func (s *Store) Create(ctx context.Context, userUID string) (*models.Session, error) {
	const op = "sessions.Create"
	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserUID:   userUID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		Revoked:   false,
	}
	if err := s.cache.Set(ctx, sessionKey(session.ID), session, s.ttl); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// Find возвращает сессию по идентификатору.
// Возвращает (nil, nil), если сессия не найдена или истекла.
func (s *Store) Find(ctx context.Context, id string) (*models.Session, error) {
	const op = "sessions.Find"
	var session models.Session
	found, err := s.cache.Get(ctx, sessionKey(id), &session)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

// Revoke помечает сессию отозванной. Возвращает false, если сессия
// не найдена или уже отозвана: повторный logout не ошибка.
//
// Чтение и перезапись записи не атомарны: два одновременных logout
// одной сессии могут оба получить true. Итоговое состояние при этом
// одно и то же (сессия отозвана), поэтому гонка терпима; строгий
// check-and-set потребовал бы Lua-скрипта на стороне redis.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	const op = "sessions.Revoke"
	session, err := s.Find(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if session == nil || session.Revoked {
		return false, nil
	}
	session.Revoked = true

	// Ключ сохраняет остаток исходного TTL, чтобы отозванная сессия
	// не жила дольше, чем жил бы токен.
	remaining := time.Until(session.ExpiresAt)
	if remaining <= 0 {
		return false, nil
	}
	if err := s.cache.Set(ctx, sessionKey(id), session, remaining); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
