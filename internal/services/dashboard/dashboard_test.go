package dashboard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/insight-console/internal/cache"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/services/dashboard"
	"github.com/magabrotheeeer/insight-console/internal/tracker"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetDashboard(ctx context.Context, dashboardUID string) (*models.Dashboard, error) {
	args := m.Called(ctx, dashboardUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dashboard), args.Error(1)
}

func (m *RepoMock) CreateDashboardItem(ctx context.Context, item models.DashboardItem) (int, error) {
	args := m.Called(ctx, item)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListDashboardItems(ctx context.Context, dashboardUID string) ([]*models.DashboardItem, error) {
	args := m.Called(ctx, dashboardUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DashboardItem), args.Error(1)
}

type EngineMock struct {
	mock.Mock
}

func (m *EngineMock) RunQuery(ctx context.Context, query string) ([]map[string]any, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

func (m *EngineMock) Recommend(ctx context.Context, dashboardUID string, queries []string) ([]models.Recommendation, error) {
	args := m.Called(ctx, dashboardUID, queries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService(t *testing.T, repo *RepoMock, engine *EngineMock) *dashboard.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	tr := tracker.New(tracker.Config{
		MaxAttempts:    1,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  10 * time.Millisecond,
	}, newNoopLogger())
	return dashboard.New(repo, engine, c, tr, newNoopLogger())
}

func waitRefresh(t *testing.T, svc *dashboard.Service, dashboardUID string) tracker.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		snap, ok := svc.RefreshStatus(dashboardUID)
		if ok && snap.State != tracker.StateRunning {
			return snap
		}
		select {
		case <-deadline:
			t.Fatal("refresh job did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRefresh_StoresSnapshot(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	repo.On("GetDashboard", mock.Anything, "dash-1").
		Return(&models.Dashboard{UID: "dash-1"}, nil).Once()
	repo.On("ListDashboardItems", mock.Anything, "dash-1").Return([]*models.DashboardItem{
		{ID: 1, DashboardUID: "dash-1", Title: "Revenue", Query: "SELECT sum(revenue) FROM sales"},
		{ID: 2, DashboardUID: "dash-1", Title: "Orders", Query: "SELECT count(*) FROM orders"},
	}, nil).Once()
	engine.On("RunQuery", mock.Anything, "SELECT sum(revenue) FROM sales").
		Return([]map[string]any{{"sum": 100.0}}, nil).Once()
	engine.On("RunQuery", mock.Anything, "SELECT count(*) FROM orders").
		Return([]map[string]any{{"count": 5.0}}, nil).Once()

	result, err := svc.Refresh(context.Background(), "dash-1")
	require.NoError(t, err)
	assert.Equal(t, tracker.Accepted, result)

	snap := waitRefresh(t, svc, "dash-1")
	assert.Equal(t, tracker.StateSucceeded, snap.State)
	assert.Equal(t, "snapshot:dash-1", snap.ResultRef)

	stored, err := svc.Snapshot(context.Background(), "dash-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Revenue", stored.Items[0].Title)
	assert.Empty(t, stored.Items[0].Error)
}

func TestRefresh_UnknownDashboard(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	repo.On("GetDashboard", mock.Anything, "missing").
		Return(nil, errors.New("dashboard not found")).Once()

	_, err := svc.Refresh(context.Background(), "missing")
	assert.Error(t, err)
	engine.AssertNotCalled(t, "RunQuery", mock.Anything, mock.Anything)
}

func TestRefresh_ItemFailureIsIsolated(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	repo.On("GetDashboard", mock.Anything, "dash-1").
		Return(&models.Dashboard{UID: "dash-1"}, nil).Once()
	repo.On("ListDashboardItems", mock.Anything, "dash-1").Return([]*models.DashboardItem{
		{ID: 1, Title: "Good", Query: "SELECT 1"},
		{ID: 2, Title: "Bad", Query: "SELECT broken"},
	}, nil).Once()
	engine.On("RunQuery", mock.Anything, "SELECT 1").
		Return([]map[string]any{{"n": 1.0}}, nil).Once()
	engine.On("RunQuery", mock.Anything, "SELECT broken").
		Return(nil, errors.New("syntax error")).Once()

	_, err := svc.Refresh(context.Background(), "dash-1")
	require.NoError(t, err)

	snap := waitRefresh(t, svc, "dash-1")
	// Сбой одного элемента не роняет снимок целиком.
	assert.Equal(t, tracker.StateSucceeded, snap.State)

	stored, err := svc.Snapshot(context.Background(), "dash-1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Empty(t, stored.Items[0].Error)
	assert.Equal(t, "syntax error", stored.Items[1].Error)
}

func TestRefresh_CoalescesWhileRunning(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	release := make(chan struct{})
	repo.On("GetDashboard", mock.Anything, "dash-1").
		Return(&models.Dashboard{UID: "dash-1"}, nil)
	repo.On("ListDashboardItems", mock.Anything, "dash-1").Return([]*models.DashboardItem{
		{ID: 1, Title: "Slow", Query: "SELECT pg_sleep(10)"},
	}, nil)
	engine.On("RunQuery", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]map[string]any{}, nil)

	first, err := svc.Refresh(context.Background(), "dash-1")
	require.NoError(t, err)
	assert.Equal(t, tracker.Accepted, first)

	second, err := svc.Refresh(context.Background(), "dash-1")
	require.NoError(t, err)
	assert.Equal(t, tracker.Coalesced, second)

	close(release)
	snap := waitRefresh(t, svc, "dash-1")
	assert.Equal(t, tracker.StateSucceeded, snap.State)
}

func TestRecommend_StoresRecommendationSet(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	repo.On("GetDashboard", mock.Anything, "dash-1").
		Return(&models.Dashboard{UID: "dash-1"}, nil).Once()
	repo.On("ListDashboardItems", mock.Anything, "dash-1").Return([]*models.DashboardItem{
		{ID: 1, Query: "SELECT 1"},
	}, nil).Once()
	engine.On("Recommend", mock.Anything, "dash-1", []string{"SELECT 1"}).
		Return([]models.Recommendation{{Title: "Churn by month", Query: "SELECT ..."}}, nil).Once()

	result, err := svc.Recommend(context.Background(), "dash-1")
	require.NoError(t, err)
	assert.Equal(t, tracker.Accepted, result)

	deadline := time.After(2 * time.Second)
	for {
		snap, ok := svc.RecommendStatus("dash-1")
		if ok && snap.State == tracker.StateSucceeded {
			assert.Equal(t, "recommendations:dash-1", snap.ResultRef)
			break
		}
		select {
		case <-deadline:
			t.Fatal("recommendation job did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	set, err := svc.Recommendations(context.Background(), "dash-1")
	require.NoError(t, err)
	require.NotNil(t, set)
	require.Len(t, set.Items, 1)
	assert.Equal(t, "Churn by month", set.Items[0].Title)
}

func TestCreateItem_TriggersRefresh(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	item := models.DashboardItem{DashboardUID: "dash-1", Title: "New", Query: "SELECT 2"}
	repo.On("CreateDashboardItem", mock.Anything, item).Return(7, nil).Once()
	repo.On("ListDashboardItems", mock.Anything, "dash-1").Return([]*models.DashboardItem{
		{ID: 7, DashboardUID: "dash-1", Title: "New", Query: "SELECT 2"},
	}, nil).Once()
	engine.On("RunQuery", mock.Anything, "SELECT 2").
		Return([]map[string]any{{"n": 2.0}}, nil).Once()

	id, err := svc.CreateItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	snap := waitRefresh(t, svc, "dash-1")
	assert.Equal(t, tracker.StateSucceeded, snap.State)
	repo.AssertExpectations(t)
}

func TestCancelRefresh(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	started := make(chan struct{})
	repo.On("GetDashboard", mock.Anything, "dash-1").
		Return(&models.Dashboard{UID: "dash-1"}, nil).Once()
	repo.On("ListDashboardItems", mock.Anything, "dash-1").Return([]*models.DashboardItem{
		{ID: 1, Query: "SELECT 1"},
	}, nil).Maybe()
	engine.On("RunQuery", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.Canceled).Maybe()

	_, err := svc.Refresh(context.Background(), "dash-1")
	require.NoError(t, err)
	<-started

	assert.True(t, svc.CancelRefresh("dash-1"))

	snap, ok := svc.RefreshStatus("dash-1")
	require.True(t, ok)
	assert.Equal(t, tracker.StateCancelled, snap.State)

	// Повторная отмена уже завершенной задачи различима.
	assert.False(t, svc.CancelRefresh("dash-1"))
}

func TestSnapshot_MissingReturnsNil(t *testing.T) {
	repo := new(RepoMock)
	engine := new(EngineMock)
	svc := newTestService(t, repo, engine)

	stored, err := svc.Snapshot(context.Background(), "never-refreshed")
	require.NoError(t, err)
	assert.Nil(t, stored)
}
