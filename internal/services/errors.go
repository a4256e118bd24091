package services

import "errors"

// State-conflict and validation errors returned by the ledger,
// transfer and infraction engines. Callers must not retry these
// automatically; they re-fetch state and decide.
var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidHoldState    = errors.New("blocked balance below hold amount")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrReceiverNotFound    = errors.New("receiver not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyFlagged      = errors.New("transaction already flagged")
	ErrNotFlagged          = errors.New("transaction is not flagged")
	ErrTerminalStatus      = errors.New("transaction already resolved")
)

// Request decoding errors shared by the HTTP handlers.
var (
	errInvalidBody  = errors.New("Invalid request body")
	errMultipleJSON = errors.New("Request body must only contain a single JSON object")
)
