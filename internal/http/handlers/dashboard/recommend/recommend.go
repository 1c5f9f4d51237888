// Package recommend реализует HTTP-обработчик запуска фоновой задачи
// генерации рекомендаций для дашборда.
package recommend

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

// Handler обрабатывает HTTP-запросы запуска генерации рекомендаций.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис дашбордов
}

// Service описывает интерфейс постановки задачи рекомендаций.
type Service interface {
	Recommend(ctx context.Context, dashboardUID string) (tracker.ScheduleResult, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Запуск генерации рекомендаций
// @Description Ставит фоновую задачу генерации рекомендаций для дашборда.
// @Tags Dashboards
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID дашборда"
// @Success 202 {object} response.Response "Задача принята или схлопнута"
// @Failure 404 {object} response.ErrorResponse "Дашборд не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /dashboards/{uid}/recommendations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.recommend"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dashboardUID := chi.URLParam(r, "uid")

	result, err := h.service.Recommend(r.Context(), dashboardUID)
	if err != nil {
		if errors.Is(err, repository.ErrDashboardNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("dashboard not found"))
			return
		}
		log.Error("failed to schedule recommendation job", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("recommendation job scheduled",
		slog.String("dashboard_uid", dashboardUID),
		slog.String("result", result.String()))
	w.WriteHeader(http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": result.String(),
	}))
}
