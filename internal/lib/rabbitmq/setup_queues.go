package rabbitmq

// Топология аудита: один durable-обменник, одна очередь для писателя.
const (
	// AuditExchange — durable-обменник, куда публикуются события аудита.
	AuditExchange = "audit"
	// AuditQueue — очередь, которую читает audit-writer.
	AuditQueue = "audit.events"
	// AuditRoutingKey — ключ маршрутизации событий аудита.
	AuditRoutingKey = "event"
)

// QueueConfig описывает очередь и ключ маршрутизации для привязки.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetAuditQueues возвращает очереди подсистемы аудита.
func GetAuditQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: AuditQueue, RoutingKey: AuditRoutingKey},
	}
}
