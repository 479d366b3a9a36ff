package ports

import (
	"context"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

// UserRepository defines the persistence contract for the credential store.
// Insert must surface domain.ErrUserExists when the unique username index
// rejects the write; the repository is the only concurrency guard.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (string, error)
}
