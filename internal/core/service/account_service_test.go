package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

type stubUserRepo struct {
	users       map[string]*domain.User
	insertCalls int
	insertErr   error
	findErr     error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Insert(_ context.Context, user *domain.User) (string, error) {
	r.insertCalls++
	if r.insertErr != nil {
		return "", r.insertErr
	}
	if _, exists := r.users[user.Username]; exists {
		return "", domain.ErrUserExists
	}
	clone := *user
	clone.ID = fmt.Sprintf("user_%d", len(r.users)+1)
	r.users[clone.Username] = &clone
	return clone.ID, nil
}

type stubTokenStore struct {
	bindings map[string]domain.TokenBinding
	saveErr  error
}

func newStubTokenStore() *stubTokenStore {
	return &stubTokenStore{bindings: make(map[string]domain.TokenBinding)}
}

func (s *stubTokenStore) Save(_ context.Context, token string, binding domain.TokenBinding, _ time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.bindings[token] = binding
	return nil
}

func (s *stubTokenStore) Resolve(_ context.Context, token string) (*domain.TokenBinding, error) {
	b, ok := s.bindings[token]
	if !ok {
		return nil, domain.ErrLoginFailed
	}
	return &b, nil
}

func (s *stubTokenStore) Revoke(_ context.Context, token string) error {
	delete(s.bindings, token)
	return nil
}

type stubAuditSink struct {
	attempts []domain.LoginAttempt
}

func (s *stubAuditSink) Enqueue(attempt domain.LoginAttempt) {
	s.attempts = append(s.attempts, attempt)
}

func newTestService(repo *stubUserRepo, tokens *stubTokenStore, audit *stubAuditSink) *AccountService {
	svc := NewAccountService(repo, tokens, nil, "secret", time.Hour, bcrypt.MinCost, zerolog.Nop())
	if audit != nil {
		svc.audit = audit
	}
	return svc
}

func TestEnsureAdminUser_CreatesOnce(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	id1, err := svc.EnsureAdminUser(context.Background(), "admin", "password")
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if repo.insertCalls != 1 {
		t.Fatalf("expected 1 insert, got %d", repo.insertCalls)
	}

	id2, err := svc.EnsureAdminUser(context.Background(), "admin", "different-password")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if id2 != id1 {
		t.Fatalf("expected same identifier, got %s and %s", id1, id2)
	}
	if repo.insertCalls != 1 {
		t.Fatalf("second call must not write, inserts = %d", repo.insertCalls)
	}

	// The original password must still verify; no reset happened.
	stored := repo.users["admin"]
	if !svc.VerifyPassword(stored, "password") {
		t.Fatalf("original password no longer verifies")
	}
	if svc.VerifyPassword(stored, "different-password") {
		t.Fatalf("second call must not have reset the password")
	}
}

func TestEnsureAdminUser_SetsAdminRole(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	if _, err := svc.EnsureAdminUser(context.Background(), "admin", "password"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	if role := repo.users["admin"].Role(); role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", role)
	}
}

func TestEnsureAdminUser_PersistenceFailurePropagates(t *testing.T) {
	repo := newStubUserRepo()
	repo.insertErr = fmt.Errorf("write concern error")
	svc := newTestService(repo, newStubTokenStore(), nil)

	if _, err := svc.EnsureAdminUser(context.Background(), "admin", "password"); err == nil {
		t.Fatalf("expected persistence failure to propagate")
	}
}

func TestCreateUser_HashesPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	if _, err := svc.CreateUser(context.Background(), "alice", "s3cret", nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored := repo.users["alice"]
	if stored.PasswordHash == "s3cret" {
		t.Fatalf("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestCreateUser_ExistingNameReturnsExistingID(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	id1, _ := svc.CreateUser(context.Background(), "bob", "first", nil)
	id2, err := svc.CreateUser(context.Background(), "bob", "second", nil)
	if err != nil {
		t.Fatalf("idempotent create errored: %v", err)
	}
	if id2 != id1 {
		t.Fatalf("expected %s, got %s", id1, id2)
	}
}

func TestCreateUser_InsertRaceResolvesToWinner(t *testing.T) {
	// Simulate losing the unique-index race: the pre-check misses, the
	// insert is rejected as a duplicate, and the winner's id comes back.
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	winnerID, _ := svc.CreateUser(context.Background(), "carol", "winner", nil)

	svc2 := newTestService(repo, newStubTokenStore(), nil)
	svc2.users = &racingUserRepo{inner: repo}

	id, err := svc2.CreateUser(context.Background(), "carol", "loser", nil)
	if err != nil {
		t.Fatalf("race must not surface an error: %v", err)
	}
	if id != winnerID {
		t.Fatalf("expected winner id %s, got %s", winnerID, id)
	}
}

// racingUserRepo reports not-found on the first lookup so the insert path is
// reached, then delegates. Models a concurrent writer landing between the
// pre-check and the insert.
type racingUserRepo struct {
	inner   *stubUserRepo
	lookups int
}

func (r *racingUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, domain.ErrUserNotFound
	}
	return r.inner.FindByUsername(ctx, username)
}

func (r *racingUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.inner.FindByID(ctx, id)
}

func (r *racingUserRepo) Insert(_ context.Context, _ *domain.User) (string, error) {
	return "", domain.ErrUserExists
}

func TestVerifyPassword_EmptyCandidate(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	_, _ = svc.CreateUser(context.Background(), "dave", "realpassword", nil)
	if svc.VerifyPassword(repo.users["dave"], "") {
		t.Fatalf("empty candidate must never verify")
	}
}

func TestVerifyPassword_MissingHash(t *testing.T) {
	svc := newTestService(newStubUserRepo(), newStubTokenStore(), nil)
	if svc.VerifyPassword(&domain.User{Username: "x"}, "anything") {
		t.Fatalf("missing hash must never verify")
	}
	if svc.VerifyPassword(&domain.User{Username: "x", PasswordHash: "not-a-bcrypt-hash"}, "anything") {
		t.Fatalf("malformed hash must never verify")
	}
}

func TestLogin_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	id, _ := svc.EnsureAdminUser(context.Background(), "admin", "password")
	identity, err := svc.Login(context.Background(), "admin", "password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if identity.UserID != id || identity.Username != "admin" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)

	_, _ = svc.EnsureAdminUser(context.Background(), "admin", "password")
	if _, err := svc.Login(context.Background(), "admin", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Any single-character mutation must fail the same way.
	base := []byte("password")
	for i := range base {
		mutated := append([]byte(nil), base...)
		mutated[i] ^= 0x01
		if _, err := svc.Login(context.Background(), "admin", string(mutated)); err != domain.ErrInvalidCredentials {
			t.Fatalf("mutation at %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(newStubUserRepo(), newStubTokenStore(), nil)
	if _, err := svc.Login(context.Background(), "ghost", "x"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLogin_EmptyInput(t *testing.T) {
	svc := newTestService(newStubUserRepo(), newStubTokenStore(), nil)
	if _, err := svc.Login(context.Background(), "", "x"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty username, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "admin", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
}

func TestLoginWithToken_CollapsesFailures(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, newStubTokenStore(), nil)
	_, _ = svc.EnsureAdminUser(context.Background(), "admin", "password")

	// Unknown user and wrong password must be indistinguishable.
	if _, err := svc.LoginWithToken(context.Background(), "ghost", "x"); err != domain.ErrLoginFailed {
		t.Fatalf("expected ErrLoginFailed for unknown user, got %v", err)
	}
	if _, err := svc.LoginWithToken(context.Background(), "admin", "wrong"); err != domain.ErrLoginFailed {
		t.Fatalf("expected ErrLoginFailed for wrong password, got %v", err)
	}
}

func TestLoginWithToken_MintsToken(t *testing.T) {
	repo := newStubUserRepo()
	tokens := newStubTokenStore()
	svc := newTestService(repo, tokens, nil)
	id, _ := svc.EnsureAdminUser(context.Background(), "admin", "password")

	grant, err := svc.LoginWithToken(context.Background(), "admin", "password")
	if err != nil {
		t.Fatalf("token login failed: %v", err)
	}
	if grant.UserID != id {
		t.Fatalf("grant bound to wrong user: %s", grant.UserID)
	}
	if grant.Token == "" {
		t.Fatalf("expected opaque token")
	}

	binding, ok := tokens.bindings[grant.Token]
	if !ok {
		t.Fatalf("token not saved to store")
	}
	if binding.UserID != id {
		t.Fatalf("binding has wrong user: %s", binding.UserID)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(grant.JWT, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("signed assertion invalid: %v", err)
	}
	if claims["sub"] != id || claims["role"] != domain.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginWithToken_ConcurrentTokens(t *testing.T) {
	repo := newStubUserRepo()
	tokens := newStubTokenStore()
	svc := newTestService(repo, tokens, nil)
	_, _ = svc.EnsureAdminUser(context.Background(), "admin", "password")

	g1, err := svc.LoginWithToken(context.Background(), "admin", "password")
	if err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	g2, err := svc.LoginWithToken(context.Background(), "admin", "password")
	if err != nil {
		t.Fatalf("second grant failed: %v", err)
	}
	if g1.Token == g2.Token {
		t.Fatalf("tokens must be unique per grant")
	}
	if len(tokens.bindings) != 2 {
		t.Fatalf("expected both tokens stored, got %d", len(tokens.bindings))
	}
}

func TestResumeToken(t *testing.T) {
	repo := newStubUserRepo()
	tokens := newStubTokenStore()
	svc := newTestService(repo, tokens, nil)
	_, _ = svc.EnsureAdminUser(context.Background(), "admin", "password")

	grant, _ := svc.LoginWithToken(context.Background(), "admin", "password")
	identity, err := svc.ResumeToken(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if identity.Username != "admin" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := svc.ResumeToken(context.Background(), "bogus"); err != domain.ErrLoginFailed {
		t.Fatalf("expected ErrLoginFailed for unknown token, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	repo := newStubUserRepo()
	tokens := newStubTokenStore()
	svc := newTestService(repo, tokens, nil)
	_, _ = svc.EnsureAdminUser(context.Background(), "admin", "password")

	grant, _ := svc.LoginWithToken(context.Background(), "admin", "password")
	if err := svc.Logout(context.Background(), grant.Token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := svc.ResumeToken(context.Background(), grant.Token); err != domain.ErrLoginFailed {
		t.Fatalf("revoked token must not resume, got %v", err)
	}
}

func TestLogin_RecordsAttempts(t *testing.T) {
	repo := newStubUserRepo()
	sink := &stubAuditSink{}
	svc := newTestService(repo, newStubTokenStore(), sink)
	_, _ = svc.EnsureAdminUser(context.Background(), "admin", "password")

	_, _ = svc.Login(context.Background(), "admin", "password")
	_, _ = svc.Login(context.Background(), "admin", "wrong")
	_, _ = svc.LoginWithToken(context.Background(), "ghost", "x")

	if len(sink.attempts) != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", len(sink.attempts))
	}
	if !sink.attempts[0].Success || sink.attempts[1].Success || sink.attempts[2].Success {
		t.Fatalf("unexpected success flags: %+v", sink.attempts)
	}
	if sink.attempts[2].Method != domain.LoginMethodToken {
		t.Fatalf("expected token method, got %s", sink.attempts[2].Method)
	}
}
