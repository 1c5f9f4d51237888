// Package insightconsole собирает основной сервис консоли: хранилище,
// кэш, брокер аудита, трекер фоновых задач и HTTP-сервер.
package insightconsole

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/insight-console/internal/cache"
	"github.com/magabrotheeeer/insight-console/internal/config"
	"github.com/magabrotheeeer/insight-console/internal/lib/dedup"
	libjwt "github.com/magabrotheeeer/insight-console/internal/lib/jwt"
	"github.com/magabrotheeeer/insight-console/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/insight-console/internal/migrations"
	"github.com/magabrotheeeer/insight-console/internal/queryengine"
	auditservice "github.com/magabrotheeeer/insight-console/internal/services/audit"
	authservice "github.com/magabrotheeeer/insight-console/internal/services/auth"
	dashboardservice "github.com/magabrotheeeer/insight-console/internal/services/dashboard"
	"github.com/magabrotheeeer/insight-console/internal/sessions"
	"github.com/magabrotheeeer/insight-console/internal/storage/repository"
	"github.com/magabrotheeeer/insight-console/internal/tracker"
)

// App — основной сервис консоли.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	broker *amqp.Connection
	audit  *auditservice.Service
}

// New создает приложение и все его зависимости.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
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

	sessionStore := sessions.New(cacheRedis, cfg.TokenTTL)
	maker := libjwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authSvc := authservice.New(db, sessionStore, maker, logger)

	auditSvc := auditservice.New(
		auditservice.NewChannelPublisher(ch),
		logger,
		dedup.New(time.Minute, 1000),
		3,
		200*time.Millisecond,
	)

	jobTracker := tracker.New(tracker.Config{
		MaxAttempts:    cfg.Tracker.MaxAttempts,
		BaseRetryDelay: cfg.Tracker.BaseRetryDelay,
		MaxRetryDelay:  cfg.Tracker.MaxRetryDelay,
		JobTimeout:     cfg.Tracker.JobTimeout,
	}, logger)

	engine := queryengine.NewClient(cfg.EngineAddress)
	dashboardSvc := dashboardservice.New(db, engine, cacheRedis, jobTracker, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authSvc, auditSvc, dashboardSvc, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		broker: conn,
		audit:  auditSvc,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.audit.Flush()
		_ = a.broker.Close()
		_ = a.db.DB.Close()
		return err
	}
}
