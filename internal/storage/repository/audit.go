package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/insight-console/internal/models"
)

// InsertAuditEvent добавляет событие в журнал аудита.
// Журнал append-only: записи никогда не изменяются и не удаляются.
func (s *Storage) InsertAuditEvent(ctx context.Context, event models.AuditEvent) error {
	const op = "storage.InsertAuditEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	changes, err := json.Marshal(event.Changes)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO audit_events
			      (actor_uid, action, resource_kind, resource_id, changes,
			       source_ip, user_agent, occurred_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := s.DB.ExecContext(ctx, query,
		event.ActorUID, event.Action, event.ResourceKind, event.ResourceID,
		changes, event.SourceIP, event.UserAgent, event.OccurredAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAuditEvents возвращает страницу журнала аудита, новые записи первыми.
func (s *Storage) ListAuditEvents(ctx context.Context, limit, offset int) ([]*models.AuditEvent, error) {
	const op = "storage.ListAuditEvents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT actor_uid, action, resource_kind, resource_id, changes,
			      source_ip, user_agent, occurred_at
			  FROM audit_events
			  ORDER BY occurred_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AuditEvent
	for rows.Next() {
		e := &models.AuditEvent{}
		var changes []byte
		if err = rows.Scan(&e.ActorUID, &e.Action, &e.ResourceKind, &e.ResourceID,
			&changes, &e.SourceIP, &e.UserAgent, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(changes) > 0 {
			if err = json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		result = append(result, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
