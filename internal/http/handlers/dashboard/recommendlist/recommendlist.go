// Package recommendlist реализует HTTP-обработчик чтения рекомендаций:
// возвращает состояние фоновой задачи и последний сгенерированный набор.
package recommendlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/insight-console/internal/http/response"
	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/tracker"
)

// Handler обрабатывает HTTP-запросы чтения рекомендаций.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис дашбордов
}

// Service описывает интерфейс чтения состояния и результата задачи.
type Service interface {
	RecommendStatus(dashboardUID string) (tracker.Snapshot, bool)
	Recommendations(ctx context.Context, dashboardUID string) (*models.RecommendationSet, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Рекомендации дашборда
// @Description Возвращает состояние задачи генерации и последний сохраненный набор рекомендаций.
// @Tags Dashboards
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID дашборда"
// @Success 200 {object} response.Response "Состояние задачи и рекомендации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /dashboards/{uid}/recommendations [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.recommendlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dashboardUID := chi.URLParam(r, "uid")

	snap, _ := h.service.RecommendStatus(dashboardUID)
	set, err := h.service.Recommendations(r.Context(), dashboardUID)
	if err != nil {
		log.Error("failed to load recommendations", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"job":             snap,
		"recommendations": set,
	}))
}
