// Package audit реализует отправку событий аудита в durable-очередь.
//
// Запись события не блокирует и не откатывает породившую его операцию:
// публикация выполняется в отдельной горутине с ограниченными повторами
// и удваивающейся задержкой. Окончательная неудача логируется (с
// подавлением повторяющихся сообщений), но никогда не замалчивается.
package audit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/insight-console/internal/lib/dedup"
	"github.com/magabrotheeeer/insight-console/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/metrics"
	"github.com/magabrotheeeer/insight-console/internal/models"
)

// Publisher описывает публикацию сообщения в обменник брокера.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Service — асинхронный писатель событий аудита.
type Service struct {
	publisher Publisher
	log       *slog.Logger
	dedup     *dedup.Window
	retries   int
	baseDelay time.Duration

	wg sync.WaitGroup
}

// New создает сервис аудита.
func New(publisher Publisher, log *slog.Logger, dd *dedup.Window, retries int, baseDelay time.Duration) *Service {
	if retries < 1 {
		retries = 1
	}
	return &Service{
		publisher: publisher,
		log:       log,
		dedup:     dd,
		retries:   retries,
		baseDelay: baseDelay,
	}
}

// Record отправляет событие аудита. Вызов не блокирует: публикация с
// повторами выполняется в фоне, ошибки не возвращаются вызывающему.
func (s *Service) Record(event models.AuditEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.publish(event)
	}()
}

// publish пытается опубликовать событие с удваивающейся задержкой.
func (s *Service) publish(event models.AuditEvent) {
	var err error
	delay := s.baseDelay
	for attempt := 1; attempt <= s.retries; attempt++ {
		err = s.publisher.Publish(rabbitmq.AuditExchange, rabbitmq.AuditRoutingKey, event)
		if err == nil {
			return
		}
		if attempt < s.retries {
			time.Sleep(delay)
			delay *= 2
		}
	}

	metrics.AuditPublishFailures.Inc()
	if s.dedup == nil || s.dedup.Allow("audit-publish:"+event.Action) {
		s.log.Error("failed to publish audit event",
			slog.String("action", event.Action),
			slog.String("resource_kind", event.ResourceKind),
			slog.String("resource_id", event.ResourceID),
			sl.Err(err))
	}
}

// Flush дожидается завершения всех фоновых публикаций.
// Используется при остановке сервиса и в тестах.
func (s *Service) Flush() {
	s.wg.Wait()
}
