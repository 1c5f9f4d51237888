// Package register реализует HTTP-обработчик регистрации пользователей.
//
// Самостоятельной регистрации нет: обработчик стоит за middleware,
// пропускающим только администраторов. Успешная регистрация попадает
// в журнал аудита вместе с данными инициатора.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/insight-console/internal/http/middlewarectx"
	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/services/auth"
	"github.com/magabrotheeeer/insight-console/internal/services/rbac"
)

// Request — входные данные для регистрации.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin owner analyst viewer"`
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис аутентификации
	audit    Auditor             // Писатель журнала аудита
	validate *validator.Validate // Валидатор для проверки входных данных
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, email, name, password, role string) (*models.User, error)
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
// @Summary Регистрация пользователя
// @Description Создает нового пользователя. Доступно только администраторам.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} response.Response "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	user, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			log.Warn("email already taken", slog.String("email", req.Email))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("user already exists"))
			return
		}
		log.Error("registration failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	actorUID, _ := r.Context().Value(middlewarectx.UserUID).(string)
	h.audit.Record(models.AuditEvent{
		ActorUID:     actorUID,
		Action:       rbac.ActionUserRegister,
		ResourceKind: rbac.ResourceUser,
		ResourceID:   user.UID,
		Changes:      map[string]any{"email": user.Email, "role": user.Role},
		SourceIP:     r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})

	log.Info("user registered", slog.String("uid", user.UID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": user.Public(),
	}))
}
