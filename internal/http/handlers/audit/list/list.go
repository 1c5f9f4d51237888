// Package list реализует HTTP-обработчик чтения журнала аудита.
package list

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/models"
)

// Пагинация по умолчанию и её верхняя граница.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handler обрабатывает HTTP-запросы чтения журнала аудита.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Хранилище журнала аудита
}

// Service описывает интерфейс постраничного чтения журнала.
type Service interface {
	ListAuditEvents(ctx context.Context, limit, offset int) ([]*models.AuditEvent, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Журнал аудита
// @Description Возвращает страницу журнала аудита, новые записи первыми.
// @Tags Audit
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы (по умолчанию 50, максимум 200)"
// @Param offset query int false "Смещение страницы"
// @Success 200 {object} response.Response "Страница журнала"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры пагинации"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /audit [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.audit.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset, err := pagination(r)
	if err != nil {
		log.Error("invalid pagination", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	events, err := h.service.ListAuditEvents(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list audit events", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"events": events,
		"limit":  limit,
		"offset": offset,
	}))
}

// pagination разбирает параметры limit/offset строки запроса.
// Отсутствующие параметры получают значения по умолчанию.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultLimit, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil || v < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil || v < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", raw)
		}
		offset = v
	}
	return limit, offset, nil
}
