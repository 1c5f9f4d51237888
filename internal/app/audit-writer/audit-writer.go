// Package auditwriter собирает сервис-писатель журнала аудита:
// подключение к брокеру, потребитель очереди и хранилище PostgreSQL.
package auditwriter

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/insight-console/internal/config"
	"github.com/magabrotheeeer/insight-console/internal/lib/rabbitmq"
	auditwriterservice "github.com/magabrotheeeer/insight-console/internal/services/auditwriter"
	"github.com/magabrotheeeer/insight-console/internal/storage/repository"
)

// App — сервис-писатель журнала аудита.
type App struct {
	logger  *slog.Logger
	db      *repository.Storage
	broker  *amqp.Connection
	channel *amqp.Channel
	service *auditwriterservice.Service
}

// New создает приложение и все его зависимости.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetAuditQueues())
	if err != nil {
		return nil, err
	}

	return &App{
		logger:  logger,
		db:      db,
		broker:  conn,
		channel: ch,
		service: auditwriterservice.New(db, logger),
	}, nil
}

// Run запускает потребителя очереди и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumeMessages(ctx, a.channel, rabbitmq.AuditQueue, a.logger, a.service.HandleMessage); err != nil {
		return err
	}
	a.logger.Info("audit writer consuming", slog.String("queue", rabbitmq.AuditQueue))

	<-ctx.Done()
	a.logger.Info("shutting down audit writer gracefully")
	_ = a.channel.Close()
	_ = a.broker.Close()
	_ = a.db.DB.Close()
	return nil
}
