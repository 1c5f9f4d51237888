package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/insight-console/internal/models"
)

// GetDashboard возвращает дашборд по его UID.
func (s *Storage) GetDashboard(ctx context.Context, dashboardUID string) (*models.Dashboard, error) {
	const op = "storage.GetDashboard"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, owner_uid, created_at
			  FROM dashboards
			  WHERE uid = $1`
	d := &models.Dashboard{}
	row := s.DB.QueryRowContext(ctx, query, dashboardUID)
	if err := row.Scan(&d.UID, &d.Name, &d.OwnerUID, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrDashboardNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

// CreateDashboard сохраняет новый дашборд и возвращает его UID.
func (s *Storage) CreateDashboard(ctx context.Context, dashboard models.Dashboard) (string, error) {
	const op = "storage.CreateDashboard"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO dashboards (name, owner_uid)
			  VALUES ($1, $2)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		dashboard.Name, dashboard.OwnerUID).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// CreateDashboardItem добавляет элемент на дашборд и возвращает его ID.
func (s *Storage) CreateDashboardItem(ctx context.Context, item models.DashboardItem) (int, error) {
	const op = "storage.CreateDashboardItem"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int
	query := `INSERT INTO dashboard_items (dashboard_uid, title, query, position)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		item.DashboardUID, item.Title, item.Query, item.Position).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListDashboardItems возвращает элементы дашборда в порядке расположения.
func (s *Storage) ListDashboardItems(ctx context.Context, dashboardUID string) ([]*models.DashboardItem, error) {
	const op = "storage.ListDashboardItems"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, dashboard_uid, title, query, position
			  FROM dashboard_items
			  WHERE dashboard_uid = $1
			  ORDER BY position`
	rows, err := s.DB.QueryContext(ctx, query, dashboardUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DashboardItem
	for rows.Next() {
		item := &models.DashboardItem{}
		if err = rows.Scan(&item.ID, &item.DashboardUID, &item.Title,
			&item.Query, &item.Position); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
