// Package dashboard реализует сервис фонового обновления дашбордов
// и генерации рекомендаций. Сами запросы исполняет семантический
// движок; сервис ставит задачи в трекер и складывает результаты в кэш.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/insight-console/internal/cache"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/tracker"
)

// Типы ресурсов фоновых задач в трекере.
const (
	KindDashboardItem  = "dashboard-item"
	KindRecommendation = "recommendation"
)

// Repository описывает операции хранилища, необходимые сервису.
type Repository interface {
	GetDashboard(ctx context.Context, dashboardUID string) (*models.Dashboard, error)
	CreateDashboardItem(ctx context.Context, item models.DashboardItem) (int, error)
	ListDashboardItems(ctx context.Context, dashboardUID string) ([]*models.DashboardItem, error)
}

// Engine описывает клиента семантического движка.
type Engine interface {
	RunQuery(ctx context.Context, query string) ([]map[string]any, error)
	Recommend(ctx context.Context, dashboardUID string, queries []string) ([]models.Recommendation, error)
}

// Service — сервис дашбордов.
type Service struct {
	repo     Repository
	engine   Engine
	cache    *cache.Cache
	tracker  *tracker.Tracker
	cacheTTL time.Duration
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, engine Engine, c *cache.Cache, tr *tracker.Tracker, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		cache:    c,
		tracker:  tr,
		cacheTTL: 24 * time.Hour,
		log:      log,
	}
}

func snapshotKey(dashboardUID string) string {
	return "snapshot:" + dashboardUID
}

func recommendationsKey(dashboardUID string) string {
	return "recommendations:" + dashboardUID
}

// Refresh ставит задачу обновления дашборда: исполнить запросы всех
// элементов через движок и сохранить снимок в кэше. Если обновление
// этого дашборда уже идет, новый запуск схлопывается в идущий.
func (s *Service) Refresh(ctx context.Context, dashboardUID string) (tracker.ScheduleResult, error) {
	const op = "dashboard.Refresh"

	// Существование дашборда проверяется до постановки задачи,
	// чтобы не плодить записи трекера по опечаткам в идентификаторе.
	if _, err := s.repo.GetDashboard(ctx, dashboardUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	result := s.tracker.Schedule(KindDashboardItem, dashboardUID, func(jobCtx context.Context) (string, error) {
		return s.runRefresh(jobCtx, dashboardUID)
	})
	s.log.Info("dashboard refresh scheduled",
		slog.String("dashboard_uid", dashboardUID),
		slog.String("result", result.String()))
	return result, nil
}

// runRefresh — тело фоновой задачи обновления.
func (s *Service) runRefresh(ctx context.Context, dashboardUID string) (string, error) {
	items, err := s.repo.ListDashboardItems(ctx, dashboardUID)
	if err != nil {
		return "", err
	}

	snapshot := models.DashboardSnapshot{
		DashboardUID: dashboardUID,
		RefreshedAt:  time.Now().UTC(),
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		result := models.ItemResult{ItemID: item.ID, Title: item.Title}
		rows, err := s.engine.RunQuery(ctx, item.Query)
		if err != nil {
			// Сбой одного элемента не роняет весь снимок: ошибка
			// видна в результате элемента.
			result.Error = err.Error()
		} else {
			result.Rows = rows
		}
		snapshot.Items = append(snapshot.Items, result)
	}

	key := snapshotKey(dashboardUID)
	if err := s.cache.Set(ctx, key, snapshot, s.cacheTTL); err != nil {
		return "", err
	}
	return key, nil
}

// Recommend ставит задачу генерации рекомендаций для дашборда.
func (s *Service) Recommend(ctx context.Context, dashboardUID string) (tracker.ScheduleResult, error) {
	const op = "dashboard.Recommend"

	if _, err := s.repo.GetDashboard(ctx, dashboardUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	result := s.tracker.Schedule(KindRecommendation, dashboardUID, func(jobCtx context.Context) (string, error) {
		return s.runRecommend(jobCtx, dashboardUID)
	})
	s.log.Info("recommendation job scheduled",
		slog.String("dashboard_uid", dashboardUID),
		slog.String("result", result.String()))
	return result, nil
}

// runRecommend — тело фоновой задачи рекомендаций.
func (s *Service) runRecommend(ctx context.Context, dashboardUID string) (string, error) {
	items, err := s.repo.ListDashboardItems(ctx, dashboardUID)
	if err != nil {
		return "", err
	}
	queries := make([]string, 0, len(items))
	for _, item := range items {
		queries = append(queries, item.Query)
	}

	recs, err := s.engine.Recommend(ctx, dashboardUID, queries)
	if err != nil {
		return "", err
	}

	set := models.RecommendationSet{
		DashboardUID: dashboardUID,
		GeneratedAt:  time.Now().UTC(),
		Items:        recs,
	}
	key := recommendationsKey(dashboardUID)
	if err := s.cache.Set(ctx, key, set, s.cacheTTL); err != nil {
		return "", err
	}
	return key, nil
}

// RefreshStatus возвращает снимок состояния задачи обновления.
func (s *Service) RefreshStatus(dashboardUID string) (tracker.Snapshot, bool) {
	return s.tracker.Poll(KindDashboardItem, dashboardUID)
}

// CancelRefresh отменяет идущее обновление дашборда.
func (s *Service) CancelRefresh(dashboardUID string) bool {
	return s.tracker.Cancel(KindDashboardItem, dashboardUID)
}

// RecommendStatus возвращает снимок состояния задачи рекомендаций.
func (s *Service) RecommendStatus(dashboardUID string) (tracker.Snapshot, bool) {
	return s.tracker.Poll(KindRecommendation, dashboardUID)
}

// CancelRecommend отменяет идущую задачу рекомендаций.
func (s *Service) CancelRecommend(dashboardUID string) bool {
	return s.tracker.Cancel(KindRecommendation, dashboardUID)
}

// Snapshot возвращает последний сохраненный снимок дашборда из кэша.
func (s *Service) Snapshot(ctx context.Context, dashboardUID string) (*models.DashboardSnapshot, error) {
	const op = "dashboard.Snapshot"
	var snapshot models.DashboardSnapshot
	found, err := s.cache.Get(ctx, snapshotKey(dashboardUID), &snapshot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

// Recommendations возвращает последний набор рекомендаций из кэша.
func (s *Service) Recommendations(ctx context.Context, dashboardUID string) (*models.RecommendationSet, error) {
	const op = "dashboard.Recommendations"
	var set models.RecommendationSet
	found, err := s.cache.Get(ctx, recommendationsKey(dashboardUID), &set)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return &set, nil
}

// CreateItem добавляет элемент на дашборд и запускает его обновление:
// добавление элемента — доменное событие, делающее снимок устаревшим.
func (s *Service) CreateItem(ctx context.Context, item models.DashboardItem) (int, error) {
	const op = "dashboard.CreateItem"

	id, err := s.repo.CreateDashboardItem(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	result := s.tracker.Schedule(KindDashboardItem, item.DashboardUID, func(jobCtx context.Context) (string, error) {
		return s.runRefresh(jobCtx, item.DashboardUID)
	})
	s.log.Info("dashboard item created, refresh triggered",
		slog.String("dashboard_uid", item.DashboardUID),
		slog.Int("item_id", id),
		slog.String("result", result.String()))
	return id, nil
}

// Forget удаляет записи трекера для удаленного дашборда.
func (s *Service) Forget(dashboardUID string) {
	s.tracker.Forget(KindDashboardItem, dashboardUID)
	s.tracker.Forget(KindRecommendation, dashboardUID)
}
