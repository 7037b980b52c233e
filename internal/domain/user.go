package domain

import "time"

// User is a local account. Single-user deployments typically have one row.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an opaque bearer token with an expiry.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// APIKeyRecord is a DB-stored provider credential. It takes precedence over
// the provider's environment-variable fallback.
type APIKeyRecord struct {
	Provider  string    `json:"provider"`
	Key       string    `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}
