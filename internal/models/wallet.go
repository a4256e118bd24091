package models

import (
	"time"
)

// Wallet holds the three balance fields for a user. The invariant
// balance == available_balance + blocked_balance must hold after every
// ledger operation; all fields are in minor currency units (cents).
type Wallet struct {
	UserID           int       `json:"userId" db:"user_id"`
	Balance          int64     `json:"balance" db:"balance"`
	AvailableBalance int64     `json:"available_balance" db:"available_balance"`
	BlockedBalance   int64     `json:"blocked_balance" db:"blocked_balance"`
	Version          int       `json:"version" db:"version"` // for optimistic locking
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
