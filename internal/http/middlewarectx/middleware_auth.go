// Package middlewarectx содержит HTTP middleware для проверки токенов
// доступа и прав.
//
// JWTMiddleware проверяет наличие и валидность токена в заголовке
// Authorization, валидирует его через сервис аутентификации (подпись,
// сессия, статус учетной записи) и в случае успеха добавляет в контекст
// идентификатор, email и роль пользователя для обработчиков ниже.
//
// В случае ошибки проверки возвращает HTTP 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/lib/dedup"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID — ключ для идентификатора пользователя в контексте.
	UserUID Key = "user_uid"
	// Email — ключ для email пользователя в контексте.
	Email Key = "email"
	// Role — ключ для роли пользователя в контексте.
	Role Key = "role"
)

// JWTMiddleware возвращает HTTP middleware, который проверяет токен
// доступа в заголовке Authorization.
//
// Если токен валиден, добавляет идентификатор, email и роль пользователя
// в контекст запроса, иначе возвращает 401 Unauthorized. Повторяющиеся
// отказы по одному и тому же токену логируются с подавлением дублей:
// сканер или залипший клиент не забивают журнал.
func JWTMiddleware(authService Service, window *dedup.Window, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				if window.Allow("missing-header:" + r.RemoteAddr) {
					log.Error("missing or invalid authorization header")
				}
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			user, err := authService.Verify(r.Context(), tokenStr)
			if err != nil {
				if window.Allow("bad-token:" + tokenStr) {
					log.Error("invalid or expired token", sl.Err(err))
				}
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, user.UID)
			ctx = context.WithValue(ctx, Email, user.Email)
			ctx = context.WithValue(ctx, Role, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
