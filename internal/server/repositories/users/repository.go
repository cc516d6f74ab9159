package users

import (
	"context"

	"github.com/staywo/authgate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetVerified(ctx context.Context, email string) error
	DeleteByID(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}
