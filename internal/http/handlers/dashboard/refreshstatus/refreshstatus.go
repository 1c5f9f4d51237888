// Package refreshstatus реализует HTTP-обработчик опроса состояния
// фонового обновления дашборда.
package refreshstatus

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/tracker"
)

// Handler обрабатывает HTTP-запросы состояния обновления.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис дашбордов
}

// Service описывает интерфейс опроса состояния задачи обновления.
type Service interface {
	RefreshStatus(dashboardUID string) (tracker.Snapshot, bool)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние обновления дашборда
// @Description Возвращает снимок состояния фоновой задачи обновления. Для дашборда, который не обновлялся, состояние idle.
// @Tags Dashboards
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID дашборда"
// @Success 200 {object} response.Response "Снимок состояния задачи"
// @Router /dashboards/{uid}/refresh [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.refreshstatus"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dashboardUID := chi.URLParam(r, "uid")

	snap, known := h.service.RefreshStatus(dashboardUID)
	log.Info("refresh status polled",
		slog.String("dashboard_uid", dashboardUID),
		slog.String("state", string(snap.State)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"job":   snap,
		"known": known,
	}))
}
