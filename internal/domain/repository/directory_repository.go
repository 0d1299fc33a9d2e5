package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/models"
)

// DirectoryRepository - чтение пользователей и услуг, которыми владеют другие сервисы.
// Единственная запись - статистика продавца после приёмки заказа.
type DirectoryRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateSellerStats(ctx context.Context, user *models.User) error
	GetService(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error)
}
