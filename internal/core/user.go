package core

import "time"

// User is a registered account. PasswordHash is a bcrypt hash; the clear
// text password never leaves the registration path.
type User struct {
	ID                int64
	Email             string
	PasswordHash      string
	IsVerified        bool
	VerificationToken string
	CreatedAt         time.Time
}

// RefreshToken is an opaque long-lived credential exchanged for new access
// tokens. Tokens are single-use: a refresh rotates them.
type RefreshToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given time.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
