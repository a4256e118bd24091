package models

import "time"

// API credential statuses
const (
	KeyActive  = "ACTIVE"
	KeyRevoked = "REVOKED"
	KeyExpired = "EXPIRED"
)

// ApiKey is an API credential pair owned by a user. At most one key
// may be ACTIVE per user at any time; the constraint is enforced at
// creation.
type ApiKey struct {
	ID           int       `json:"id" db:"id"`
	UserID       int       `json:"userId" db:"user_id"`
	ClientID     string    `json:"client_id" db:"client_id"`
	ClientSecret string    `json:"client_secret,omitempty" db:"client_secret"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
