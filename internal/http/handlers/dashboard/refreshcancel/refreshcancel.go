// Package refreshcancel реализует HTTP-обработчик отмены фонового
// обновления дашборда. Отмена кооперативная: задача получает отмену
// контекста, её поздний результат отбрасывается.
package refreshcancel

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/insight-console/internal/http/response"
)

// Handler обрабатывает HTTP-запросы отмены обновления.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис дашбордов
}

// Service описывает интерфейс отмены задачи обновления.
type Service interface {
	CancelRefresh(dashboardUID string) bool
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отмена обновления дашборда
// @Description Отменяет идущее фоновое обновление. Возвращает false, если отменять нечего.
// @Tags Dashboards
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID дашборда"
// @Success 200 {object} response.Response "Результат отмены"
// @Router /dashboards/{uid}/refresh [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.refreshcancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dashboardUID := chi.URLParam(r, "uid")

	cancelled := h.service.CancelRefresh(dashboardUID)
	log.Info("refresh cancel requested",
		slog.String("dashboard_uid", dashboardUID),
		slog.Bool("cancelled", cancelled))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"cancelled": cancelled,
	}))
}
