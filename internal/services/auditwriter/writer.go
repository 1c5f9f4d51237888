// Package auditwriter реализует потребителя очереди аудита:
// каждое сообщение десериализуется и добавляется в append-only
// журнал в PostgreSQL.
package auditwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/models"
)

// AuditRepository описывает контракт для записи событий в журнал.
type AuditRepository interface {
	InsertAuditEvent(ctx context.Context, event models.AuditEvent) error
}

// Service — обработчик сообщений очереди аудита.
type Service struct {
	repo AuditRepository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo AuditRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// HandleMessage разбирает сообщение очереди и сохраняет событие.
// Ошибка приводит к Nack и повторной доставке на стороне брокера.
func (s *Service) HandleMessage(body []byte) error {
	const op = "auditwriter.HandleMessage"

	var event models.AuditEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Битое сообщение не станет валидным при повторной доставке:
		// логируем и подтверждаем, чтобы не зациклить очередь.
		s.log.Error("dropping malformed audit event", sl.Err(err))
		return nil
	}

	if err := s.repo.InsertAuditEvent(context.Background(), event); err != nil {
		s.log.Error("failed to insert audit event", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("audit event stored",
		slog.String("action", event.Action),
		slog.String("resource_kind", event.ResourceKind),
		slog.String("resource_id", event.ResourceID))
	return nil
}
