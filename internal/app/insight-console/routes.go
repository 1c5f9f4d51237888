// Package insightconsole предоставляет маршруты основного сервиса.
package insightconsole

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	auditlist "github.com/magabrotheeeer/insight-console/internal/http/handlers/audit/list"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/dashboard/recommend"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/dashboard/recommendlist"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/dashboard/refresh"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/dashboard/refreshcancel"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/dashboard/refreshstatus"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/health"
	userlist "github.com/magabrotheeeer/insight-console/internal/http/handlers/user/list"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/user/updaterole"
	"github.com/magabrotheeeer/insight-console/internal/http/handlers/user/updatestatus"
	"github.com/magabrotheeeer/insight-console/internal/http/middlewarectx"
	"github.com/magabrotheeeer/insight-console/internal/lib/dedup"
	"github.com/magabrotheeeer/insight-console/internal/models"
	auditservice "github.com/magabrotheeeer/insight-console/internal/services/audit"
	authservice "github.com/magabrotheeeer/insight-console/internal/services/auth"
	dashboardservice "github.com/magabrotheeeer/insight-console/internal/services/dashboard"
	"github.com/magabrotheeeer/insight-console/internal/services/rbac"
	"github.com/magabrotheeeer/insight-console/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authSvc *authservice.Service, auditSvc *auditservice.Service, dashboardSvc *dashboardservice.Service, storage *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	loginLimiter := rate.NewLimiter(rate.Every(time.Second), 5)
	authWindow := dedup.New(time.Minute, 1000)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(loginLimiter, logger))
			r.Post("/auth/login", login.New(logger, authSvc).ServeHTTP)
		})
		// Logout стоит вне группы проверки токена: обработчик сам
		// различает отсутствующий токен (400) и уже отозванную сессию
		// (404), middleware превратил бы оба случая в 401.
		r.Post("/auth/logout", logout.New(logger, authSvc).ServeHTTP)
		r.Get("/health", health.New().ServeHTTP)

		// Группа с проверкой токена доступа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authSvc, authWindow, logger))

			r.Get("/auth/me", me.New(logger, authSvc).ServeHTTP)

			// Администрирование пользователей
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Post("/auth/register", register.New(logger, authSvc, auditSvc).ServeHTTP)
				r.Patch("/users/{uid}/role", updaterole.New(logger, storage, auditSvc).ServeHTTP)
				r.Patch("/users/{uid}/status", updatestatus.New(logger, storage, auditSvc).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequirePermission(logger, rbac.ActionUserList, rbac.ResourceUser))
				r.Get("/users", userlist.New(logger, storage).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequirePermission(logger, rbac.ActionAuditList, rbac.ResourceAudit))
				r.Get("/audit", auditlist.New(logger, storage).ServeHTTP)
			})

			// Фоновые задачи дашбордов
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequirePermission(logger, rbac.ActionDashboardRefresh, rbac.ResourceDashboard))
				r.Post("/dashboards/{uid}/refresh", refresh.New(logger, dashboardSvc).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequirePermission(logger, rbac.ActionDashboardView, rbac.ResourceDashboard))
				r.Get("/dashboards/{uid}/refresh", refreshstatus.New(logger, dashboardSvc).ServeHTTP)
				r.Get("/dashboards/{uid}/recommendations", recommendlist.New(logger, dashboardSvc).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequirePermission(logger, rbac.ActionDashboardCancel, rbac.ResourceDashboard))
				r.Delete("/dashboards/{uid}/refresh", refreshcancel.New(logger, dashboardSvc).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequirePermission(logger, rbac.ActionDashboardRecommend, rbac.ResourceDashboard))
				r.Post("/dashboards/{uid}/recommendations", recommend.New(logger, dashboardSvc).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
