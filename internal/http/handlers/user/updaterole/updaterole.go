// Package updaterole реализует HTTP-обработчик смены роли пользователя.
//
// Доступно только администраторам; изменение попадает в журнал аудита
// со старым и новым значением роли.
package updaterole

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/insight-console/internal/http/middlewarectx"
	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/services/rbac"
	"github.com/magabrotheeeer/insight-console/internal/storage/repository"
)

// Request — входные данные для смены роли.
type Request struct {
	Role string `json:"role" validate:"required,oneof=admin owner analyst viewer"`
}

// Handler обрабатывает HTTP-запросы смены роли.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Хранилище учетных записей
	audit    Auditor             // Писатель журнала аудита
	validate *validator.Validate // Валидатор для проверки входных данных
}

// Service описывает операции хранилища, необходимые обработчику.
type Service interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
	UpdateUserRole(ctx context.Context, userUID, role string) error
}

// Auditor описывает запись события в журнал аудита.
type Auditor interface {
	Record(event models.AuditEvent)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, auditor Auditor) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		audit:    auditor,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена роли пользователя
// @Description Изменяет роль пользователя. Доступно только администраторам, изменение аудируется.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID пользователя"
// @Param request body Request true "Новая роль"
// @Success 200 {object} response.Response "Роль изменена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/{uid}/role [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.updaterole"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := chi.URLParam(r, "uid")

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	before, err := h.service.GetUserByUID(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to load user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	if err = h.service.UpdateUserRole(r.Context(), userUID, req.Role); err != nil {
		log.Error("failed to update role", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	actorUID, _ := r.Context().Value(middlewarectx.UserUID).(string)
	h.audit.Record(models.AuditEvent{
		ActorUID:     actorUID,
		Action:       rbac.ActionUserUpdateRole,
		ResourceKind: rbac.ResourceUser,
		ResourceID:   userUID,
		Changes:      map[string]any{"from": before.Role, "to": req.Role},
		SourceIP:     r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})

	log.Info("user role updated",
		slog.String("uid", userUID),
		slog.String("role", req.Role))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"uid":  userUID,
		"role": req.Role,
	}))
}
