package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

// Key format: login_token:<token>
const tokenKeyPrefix = "login_token:"

// TokenStore keeps issued login tokens in Redis. Expiry is delegated to the
// key TTL; multiple tokens per user coexist because each token is its own
// key.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore creates a TokenStore wrapping the given Redis client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Save persists the binding under the token's key with the given TTL.
func (s *TokenStore) Save(ctx context.Context, token string, binding domain.TokenBinding, ttl time.Duration) error {
	payload, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("encode token binding: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Resolve returns the binding for a token, or domain.ErrLoginFailed when the
// token is unknown or expired.
func (s *TokenStore) Resolve(ctx context.Context, token string) (*domain.TokenBinding, error) {
	raw, err := s.client.Get(ctx, tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrLoginFailed
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	var binding domain.TokenBinding
	if err := json.Unmarshal(raw, &binding); err != nil {
		return nil, fmt.Errorf("decode token binding: %w", err)
	}
	return &binding, nil
}

// Revoke deletes a token. Deleting an absent token is a no-op.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}
