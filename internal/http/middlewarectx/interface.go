package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/insight-console/internal/models"
)

// Service описывает интерфейс сервиса для проверки токена доступа.
type Service interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}
