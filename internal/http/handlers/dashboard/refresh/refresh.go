// Package refresh реализует HTTP-обработчик запуска фонового обновления
// дашборда. Запрос не ждет результата: ответ 202 сообщает, принята ли
// новая задача или запуск схлопнулся в уже идущий.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/storage/repository"
	"github.com/magabrotheeeer/insight-console/internal/tracker"
)

// Handler обрабатывает HTTP-запросы запуска обновления.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис дашбордов
}

// Service описывает интерфейс постановки задачи обновления.
type Service interface {
	Refresh(ctx context.Context, dashboardUID string) (tracker.ScheduleResult, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Запуск обновления дашборда
// @Description Ставит фоновую задачу обновления. Если обновление уже идет, возвращает coalesced.
// @Tags Dashboards
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID дашборда"
// @Success 202 {object} response.Response "Задача принята или схлопнута"
// @Failure 404 {object} response.ErrorResponse "Дашборд не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /dashboards/{uid}/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dashboardUID := chi.URLParam(r, "uid")

	result, err := h.service.Refresh(r.Context(), dashboardUID)
	if err != nil {
		if errors.Is(err, repository.ErrDashboardNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("dashboard not found"))
			return
		}
		log.Error("failed to schedule refresh", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("refresh scheduled",
		slog.String("dashboard_uid", dashboardUID),
		slog.String("result", result.String()))
	w.WriteHeader(http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": result.String(),
	}))
}
