package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

const tokenBytes = 32

// AccountService implements account management and both login paths.
type AccountService struct {
	users      ports.UserRepository
	tokens     ports.TokenStore
	audit      ports.AuditSink
	jwtSecret  string
	tokenTTL   time.Duration
	bcryptCost int
	log        zerolog.Logger
}

// NewAccountService wires an AccountService. audit may be nil to disable
// attempt recording. A non-positive bcryptCost falls back to the library
// default (currently 10).
func NewAccountService(
	users ports.UserRepository,
	tokens ports.TokenStore,
	audit ports.AuditSink,
	jwtSecret string,
	tokenTTL time.Duration,
	bcryptCost int,
	log zerolog.Logger,
) *AccountService {
	if tokenTTL <= 0 {
		tokenTTL = 90 * 24 * time.Hour
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		users:      users,
		tokens:     tokens,
		audit:      audit,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// EnsureAdminUser guarantees that an administrator account with the given
// username exists. Repeated calls are safe: an existing user is returned
// unchanged, its password is never reset, and at most one write happens.
func (s *AccountService) EnsureAdminUser(ctx context.Context, username, password string) (string, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return "", fmt.Errorf("ensure admin user: %w", err)
	}

	id, err := s.CreateUser(ctx, username, password, map[string]any{"role": domain.RoleAdmin})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("username", username).Msg("admin user created")
	return id, nil
}

// CreateUser hashes the password and persists a new user. A username
// collision, found by the pre-check or surfaced by the unique index during a
// concurrent race, resolves to the winning user's identifier with no error:
// create is idempotent by contract.
func (s *AccountService) CreateUser(ctx context.Context, username, password string, profile map[string]any) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return "", fmt.Errorf("create user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("create user: hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Profile:      profile,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.users.Insert(ctx, user)
	if errors.Is(err, domain.ErrUserExists) {
		// Lost the race against a concurrent insert; the unique index picked
		// the winner, return its identifier.
		winner, ferr := s.users.FindByUsername(ctx, username)
		if ferr != nil {
			return "", fmt.Errorf("create user: resolve winner: %w", ferr)
		}
		return winner.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// VerifyPassword reports whether candidate matches the user's stored hash.
// The comparison is constant-time inside bcrypt. A missing or malformed
// stored hash, or an empty candidate, never verifies.
func (s *AccountService) VerifyPassword(user *domain.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

// Login authenticates a username/password pair and returns the identity
// tuple. An unknown username fails with ErrUserNotFound; a wrong password or
// an unusable stored hash fails with ErrInvalidCredentials. This path leaks
// the not-found distinction on purpose, for wire parity with the existing
// clients; LoginWithToken is the stricter variant.
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.Identity, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.recordAttempt(username, "", domain.LoginMethodPlain, false, "user-not-found")
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.VerifyPassword(user, password) {
		s.recordAttempt(username, user.ID, domain.LoginMethodPlain, false, "invalid-credentials")
		return nil, domain.ErrInvalidCredentials
	}

	s.recordAttempt(username, user.ID, domain.LoginMethodPlain, true, "")
	return &domain.Identity{UserID: user.ID, Username: user.Username}, nil
}

// LoginWithToken authenticates like Login but collapses every
// authentication failure to ErrLoginFailed (no username enumeration), and on
// success mints an opaque login token plus a signed assertion. Concurrent
// tokens per user are permitted; each grant stands alone.
func (s *AccountService) LoginWithToken(ctx context.Context, username, password string) (*domain.TokenGrant, error) {
	if username == "" || password == "" {
		return nil, domain.ErrLoginFailed
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.recordAttempt(username, "", domain.LoginMethodToken, false, "login-failed")
		return nil, domain.ErrLoginFailed
	}
	if err != nil {
		return nil, fmt.Errorf("token login: %w", err)
	}

	if !s.VerifyPassword(user, password) {
		s.recordAttempt(username, user.ID, domain.LoginMethodToken, false, "login-failed")
		return nil, domain.ErrLoginFailed
	}

	token, err := mintToken()
	if err != nil {
		return nil, fmt.Errorf("token login: mint token: %w", err)
	}

	now := time.Now().UTC()
	binding := domain.TokenBinding{UserID: user.ID, IssuedAt: now}
	if err := s.tokens.Save(ctx, token, binding, s.tokenTTL); err != nil {
		return nil, fmt.Errorf("token login: save token: %w", err)
	}

	signed, err := s.signAssertion(user)
	if err != nil {
		return nil, fmt.Errorf("token login: sign assertion: %w", err)
	}

	s.recordAttempt(username, user.ID, domain.LoginMethodToken, true, "")
	return &domain.TokenGrant{
		UserID:       user.ID,
		Token:        token,
		JWT:          signed,
		TokenExpires: now.Add(s.tokenTTL),
	}, nil
}

// ResumeToken exchanges a previously issued login token for the identity it
// is bound to. Unknown, expired, or orphaned tokens fail with ErrLoginFailed.
func (s *AccountService) ResumeToken(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrLoginFailed
	}

	binding, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, domain.ErrLoginFailed
	}

	user, err := s.users.FindByID(ctx, binding.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrLoginFailed
	}
	if err != nil {
		return nil, fmt.Errorf("resume token: %w", err)
	}

	return &domain.Identity{UserID: user.ID, Username: user.Username}, nil
}

// Logout invalidates a single login token. Revoking an unknown token is not
// an error.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *AccountService) recordAttempt(username, userID, method string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.LoginAttempt{
		Username: username,
		UserID:   userID,
		Method:   method,
		Success:  success,
		Reason:   reason,
		At:       time.Now().UTC(),
	})
}

// mintToken produces an opaque URL-safe bearer token.
func mintToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *AccountService) signAssertion(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
