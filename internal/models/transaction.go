package models

import (
	"time"
)

// Transaction types
const (
	TypeDeposit    = "DEPOSIT"
	TypePayment    = "PAYMENT"
	TypeTransfer   = "TRANSFER"
	TypeWithdrawal = "WITHDRAWAL"
)

// Transaction statuses
const (
	StatusPending    = "PENDING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusInfraction = "INFRACTION"
)

// InfractionRecord is written when an admin flags a transaction.
// Held records whether funds were actually moved to blocked_balance,
// so the review step knows whether there is a hold to unwind.
type InfractionRecord struct {
	Reason  string    `json:"reason"`
	Date    time.Time `json:"date"`
	AdminID int       `json:"adminId"`
	Held    bool      `json:"held"`
}

// ReviewRecord is written exactly once when a flagged transaction
// is resolved.
type ReviewRecord struct {
	Approved bool      `json:"approved"`
	Note     string    `json:"note"`
	Date     time.Time `json:"date"`
	AdminID  int       `json:"adminId"`
}

// TransactionMetadata is the tagged extension payload stored as JSONB.
// Each field corresponds to one lifecycle stage; fields are only ever
// appended, never overwritten.
type TransactionMetadata struct {
	SenderUsername   string            `json:"senderUsername,omitempty"`
	ReceiverUsername string            `json:"receiverUsername,omitempty"`
	Infraction       *InfractionRecord `json:"infraction,omitempty"`
	Review           *ReviewRecord     `json:"review,omitempty"`
}

// Transaction is an append-mostly ledger log entry. amount, type,
// sender and receiver are immutable after creation; status may only
// take the one-time INFRACTION -> COMPLETED/FAILED transition.
type Transaction struct {
	ID          int                 `json:"id" db:"id"`
	Amount      int64               `json:"amount" db:"amount"` // in cents
	Type        string              `json:"type" db:"type"`
	Status      string              `json:"status" db:"status"`
	SenderID    *int                `json:"senderId,omitempty" db:"sender_id"`
	ReceiverID  *int                `json:"receiverId,omitempty" db:"receiver_id"`
	Description string              `json:"description,omitempty" db:"description"`
	Metadata    TransactionMetadata `json:"metadata" db:"metadata"`
	CreatedAt   time.Time           `json:"createdAt" db:"created_at"`
}

// ValidStatus reports whether s is one of the persisted transaction statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusInfraction:
		return true
	}
	return false
}

// ValidType reports whether t is one of the persisted transaction types.
func ValidType(t string) bool {
	switch t {
	case TypeDeposit, TypePayment, TypeTransfer, TypeWithdrawal:
		return true
	}
	return false
}
