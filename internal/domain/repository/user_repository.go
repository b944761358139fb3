package repository

import (
	"context"
	"errors"

	"github.com/sittichok/user-service/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the interface for user-related database operations.
// Create assigns the id and the default role; it returns ErrDuplicateEmail
// when another record already owns the email.
type UserRepository interface {
	Create(ctx context.Context, fullname, email, passwordHash string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
