package domain

import "time"

// Login method names as they appear on the wire.
const (
	LoginMethodPlain = "login"
	LoginMethodToken = "accounts.login"
)

// LoginAttempt is a single authentication outcome destined for the audit
// trail. Recording is asynchronous and never influences the login result.
type LoginAttempt struct {
	Username string
	UserID   string
	Method   string
	Success  bool
	Reason   string
	RemoteIP string
	At       time.Time
}
