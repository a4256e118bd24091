package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/payquick/backend/internal/models"
)

// LedgerService owns the consistency of the three wallet balance
// fields. Every mutation is a single conditional UPDATE so the balance
// check and the decrement execute as one atomic statement; the
// RowsAffected result tells callers whether the precondition held.
//
// Multi-wallet operations must lock rows through LockWalletTx in
// ascending user id order to avoid deadlocks under concurrent
// opposite-direction transfers.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Debit decreases balance and available_balance in its own transaction.
func (s *LedgerService) Debit(userID int, amount int64) error {
	return s.inTx(func(tx *sql.Tx) error { return s.DebitTx(tx, userID, amount) })
}

// Credit increases balance and available_balance in its own transaction.
func (s *LedgerService) Credit(userID int, amount int64) error {
	return s.inTx(func(tx *sql.Tx) error { return s.CreditTx(tx, userID, amount) })
}

// Hold moves amount from available_balance to blocked_balance.
func (s *LedgerService) Hold(userID int, amount int64) error {
	return s.inTx(func(tx *sql.Tx) error { return s.HoldTx(tx, userID, amount) })
}

// Release moves amount from blocked_balance back to available_balance.
func (s *LedgerService) Release(userID int, amount int64) error {
	return s.inTx(func(tx *sql.Tx) error { return s.ReleaseTx(tx, userID, amount) })
}

// FinalizeHold removes a held amount from both blocked_balance and
// balance, completing the debit leg of an approved held transfer.
func (s *LedgerService) FinalizeHold(userID int, amount int64) error {
	return s.inTx(func(tx *sql.Tx) error { return s.FinalizeHoldTx(tx, userID, amount) })
}

func (s *LedgerService) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// DebitTx decreases balance and available_balance by amount. Fails
// with ErrInsufficientFunds when available_balance < amount; the check
// and the decrement are one statement.
func (s *LedgerService) DebitTx(tx *sql.Tx, userID int, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance - $1, available_balance = available_balance - $1,
		    version = version + 1, updated_at = $2
		WHERE user_id = $3 AND available_balance >= $1`,
		amount, time.Now(), userID)
	if err != nil {
		return err
	}
	return s.checkApplied(tx, result, userID, ErrInsufficientFunds)
}

// CreditTx increases balance and available_balance by amount. No upper
// bound is enforced.
func (s *LedgerService) CreditTx(tx *sql.Tx, userID int, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance + $1, available_balance = available_balance + $1,
		    version = version + 1, updated_at = $2
		WHERE user_id = $3`,
		amount, time.Now(), userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// HoldTx moves amount from available_balance to blocked_balance;
// balance is unchanged.
func (s *LedgerService) HoldTx(tx *sql.Tx, userID int, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	result, err := tx.Exec(`
		UPDATE wallets
		SET available_balance = available_balance - $1, blocked_balance = blocked_balance + $1,
		    version = version + 1, updated_at = $2
		WHERE user_id = $3 AND available_balance >= $1`,
		amount, time.Now(), userID)
	if err != nil {
		return err
	}
	return s.checkApplied(tx, result, userID, ErrInsufficientFunds)
}

// ReleaseTx moves amount from blocked_balance back to
// available_balance; balance is unchanged.
func (s *LedgerService) ReleaseTx(tx *sql.Tx, userID int, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	result, err := tx.Exec(`
		UPDATE wallets
		SET blocked_balance = blocked_balance - $1, available_balance = available_balance + $1,
		    version = version + 1, updated_at = $2
		WHERE user_id = $3 AND blocked_balance >= $1`,
		amount, time.Now(), userID)
	if err != nil {
		return err
	}
	return s.checkApplied(tx, result, userID, ErrInvalidHoldState)
}

// FinalizeHoldTx decreases blocked_balance and balance by amount.
func (s *LedgerService) FinalizeHoldTx(tx *sql.Tx, userID int, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance - $1, blocked_balance = blocked_balance - $1,
		    version = version + 1, updated_at = $2
		WHERE user_id = $3 AND blocked_balance >= $1`,
		amount, time.Now(), userID)
	if err != nil {
		return err
	}
	return s.checkApplied(tx, result, userID, ErrInvalidHoldState)
}

// LockWalletTx locks a wallet row for the duration of the transaction
// and returns its current state.
func (s *LedgerService) LockWalletTx(tx *sql.Tx, userID int) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.QueryRow(`
		SELECT user_id, balance, available_balance, blocked_balance, version, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE`, userID).Scan(
		&wallet.UserID, &wallet.Balance, &wallet.AvailableBalance,
		&wallet.BlockedBalance, &wallet.Version, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockWalletsTx locks two wallet rows in ascending user id order and
// returns them matched to the argument order.
func (s *LedgerService) LockWalletsTx(tx *sql.Tx, firstID, secondID int) (*models.Wallet, *models.Wallet, error) {
	lockFirst, lockSecond := firstID, secondID
	if firstID > secondID {
		lockFirst, lockSecond = secondID, firstID
	}

	a, err := s.LockWalletTx(tx, lockFirst)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.LockWalletTx(tx, lockSecond)
	if err != nil {
		return nil, nil, err
	}

	if lockFirst != firstID {
		a, b = b, a
	}
	return a, b, nil
}

// GetWallet returns the current wallet state without locking.
func (s *LedgerService) GetWallet(userID int) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.QueryRow(`
		SELECT user_id, balance, available_balance, blocked_balance, version, updated_at
		FROM wallets
		WHERE user_id = $1`, userID).Scan(
		&wallet.UserID, &wallet.Balance, &wallet.AvailableBalance,
		&wallet.BlockedBalance, &wallet.Version, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// checkApplied maps a zero-row conditional update to the right error:
// the precondition failed if the wallet exists, otherwise the wallet
// is missing.
func (s *LedgerService) checkApplied(tx *sql.Tx, result sql.Result, userID int, preconditionErr error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("wallet lookup after failed update: %w", err)
	}
	if !exists {
		return ErrWalletNotFound
	}
	return preconditionErr
}
