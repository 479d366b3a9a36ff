package ports

import (
	"context"
	"time"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

// TokenStore holds issued login tokens. Tokens are opaque to the store;
// expiry is enforced by the TTL given at save time.
type TokenStore interface {
	Save(ctx context.Context, token string, binding domain.TokenBinding, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (*domain.TokenBinding, error)
	Revoke(ctx context.Context, token string) error
}
