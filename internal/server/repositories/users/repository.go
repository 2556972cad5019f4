package users

import (
	"context"

	"github.com/foliosync/foliosync/internal/models"
)

// Repository is the server-side contract for portfolio-owner accounts.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
