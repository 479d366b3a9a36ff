package ports

import (
	"context"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

// AccountService manages user records and authenticates sessions.
//
// EnsureAdminUser and CreateUser are idempotent: a username collision returns
// the existing user's identifier, never an error. Login and LoginWithToken
// are the two wire-facing login paths; they deliberately differ in failure
// shape (Login distinguishes ErrUserNotFound, LoginWithToken collapses every
// authentication failure to ErrLoginFailed).
type AccountService interface {
	EnsureAdminUser(ctx context.Context, username, password string) (string, error)
	CreateUser(ctx context.Context, username, password string, profile map[string]any) (string, error)
	VerifyPassword(user *domain.User, candidate string) bool
	Login(ctx context.Context, username, password string) (*domain.Identity, error)
	LoginWithToken(ctx context.Context, username, password string) (*domain.TokenGrant, error)
	ResumeToken(ctx context.Context, token string) (*domain.Identity, error)
	Logout(ctx context.Context, token string) error
}
