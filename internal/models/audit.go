package models

import "time"

// AuditEvent — неизменяемая запись о привилегированной операции.
// События только добавляются, после создания никогда не изменяются.
type AuditEvent struct {
	ActorUID     string         `json:"actor_uid"`     // Кто выполнил операцию
	Action       string         `json:"action"`        // Глагол действия, например user.update_role
	ResourceKind string         `json:"resource_kind"` // Тип ресурса
	ResourceID   string         `json:"resource_id"`   // Идентификатор ресурса
	Changes      map[string]any `json:"changes"`       // Снимок измененных полей (до/после)
	SourceIP     string         `json:"source_ip"`     // IP-адрес источника запроса
	UserAgent    string         `json:"user_agent"`    // User-Agent источника запроса
	OccurredAt   time.Time      `json:"occurred_at"`   // Время события
}
