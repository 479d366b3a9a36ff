package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrLoginFailed = errors.New("login failed")
var ErrUserExists = errors.New("user already exists")

// User is a persisted account record. PasswordHash is a bcrypt digest and is
// never serialised towards clients.
type User struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"`
	Profile      map[string]any `json:"profile,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Role reads the role marker out of the profile. Records without a marker
// count as members.
func (u *User) Role() string {
	if u.Profile != nil {
		if role, ok := u.Profile["role"].(string); ok && role != "" {
			return role
		}
	}
	return RoleMember
}

// Identity is the minimal tuple proving a successful authentication.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// TokenGrant is the result of a token-minting login: an opaque bearer token
// bound to the user, plus a signed assertion usable on the live channel.
type TokenGrant struct {
	UserID       string    `json:"userId"`
	Token        string    `json:"token"`
	JWT          string    `json:"jwt"`
	TokenExpires time.Time `json:"tokenExpires"`
}

// TokenBinding is what the token store persists per opaque token. Multiple
// bindings per user may exist at once.
type TokenBinding struct {
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}
