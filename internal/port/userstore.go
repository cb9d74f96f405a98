package port

import (
	"context"

	"github.com/streamhive/streamhive/internal/domain"
)

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role domain.Role) (*domain.User, error)
	GetUser(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	HasUser(ctx context.Context) (bool, error)
}
