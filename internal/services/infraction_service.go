package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/payquick/backend/internal/audit"
	"github.com/payquick/backend/internal/models"
)

// InfractionService implements the suspicious-transaction state
// machine: PENDING/COMPLETED -> INFRACTION -> {COMPLETED, FAILED}.
// All balance effects of a transition commit atomically with the
// status change.
type InfractionService struct {
	db        *sql.DB
	ledger    *LedgerService
	audit     *audit.AuditLogger
	validator *ValidationHelper
}

type FlagRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type ReviewRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Note     string `json:"note" validate:"required,max=500"`
}

func NewInfractionService(db *sql.DB) *InfractionService {
	return &InfractionService{
		db:        db,
		ledger:    NewLedgerService(db),
		audit:     audit.NewAuditLogger(),
		validator: NewValidationHelper(),
	}
}

// FlagTransaction marks a transaction as a suspected infraction
// @Summary Flag a transaction
// @Description Flag a suspicious transaction; for transfers with available cover the amount is moved to the sender's blocked balance
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param request body FlagRequest true "Flag reason"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/transactions/{id}/flag [post]
func (s *InfractionService) FlagTransaction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid transaction ID", http.StatusBadRequest, nil)
		return
	}

	var req FlagRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	transaction, err := s.flag(transactionID, req.Reason, adminID)
	if err != nil {
		switch err {
		case ErrTransactionNotFound:
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		case ErrAlreadyFlagged:
			SendErrorResponse(w, "Transaction already flagged", http.StatusConflict, nil)
		case ErrTerminalStatus:
			SendErrorResponse(w, "Transaction already resolved", http.StatusConflict, nil)
		default:
			log.Printf("[INFRACTION] Flag failed for transaction %d: %v", transactionID, err)
			SendErrorResponse(w, "Failed to flag transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	held := transaction.Metadata.Infraction != nil && transaction.Metadata.Infraction.Held
	s.audit.LogInfraction(transaction.ID, adminID, transaction.Amount, held, req.Reason)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transaction)
}

func (s *InfractionService) flag(transactionID int, reason string, adminID int) (*models.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	transaction, err := fetchTransactionForUpdate(tx, transactionID)
	if err != nil {
		return nil, err
	}

	if transaction.Status == models.StatusInfraction {
		return nil, ErrAlreadyFlagged
	}
	if transaction.Status == models.StatusFailed {
		return nil, ErrTerminalStatus
	}

	// Containment is best-effort: hold the amount only when it is a
	// transfer and the sender still has available cover. Funds already
	// spent elsewhere leave nothing to hold; flagging proceeds anyway.
	held := false
	if transaction.Type == models.TypeTransfer && transaction.SenderID != nil {
		wallet, err := s.ledger.LockWalletTx(tx, *transaction.SenderID)
		if err != nil && err != ErrWalletNotFound {
			return nil, err
		}
		if wallet != nil && wallet.AvailableBalance >= transaction.Amount {
			if err := s.ledger.HoldTx(tx, *transaction.SenderID, transaction.Amount); err != nil {
				return nil, err
			}
			held = true
		} else {
			log.Printf("[INFRACTION] Skipping hold for transaction %d: insufficient available balance", transactionID)
		}
	}

	transaction.Status = models.StatusInfraction
	transaction.Metadata.Infraction = &models.InfractionRecord{
		Reason:  reason,
		Date:    time.Now(),
		AdminID: adminID,
		Held:    held,
	}

	if err := updateTransactionStatusTx(tx, transaction); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[INFRACTION] Transaction %d flagged by admin %d (held=%v)", transactionID, adminID, held)
	return transaction, nil
}

// ReviewTransaction resolves a flagged transaction
// @Summary Review a flagged transaction
// @Description Approve (complete the held transfer) or deny (release the hold, fail the transaction) a flagged transaction
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param request body ReviewRequest true "Review decision"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/transactions/{id}/review [post]
func (s *InfractionService) ReviewTransaction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid transaction ID", http.StatusBadRequest, nil)
		return
	}

	var req ReviewRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := s.review(transactionID, *req.Approved, req.Note, adminID); err != nil {
		switch err {
		case ErrTransactionNotFound:
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		case ErrNotFlagged:
			SendErrorResponse(w, "Transaction is not flagged", http.StatusConflict, nil)
		default:
			log.Printf("[INFRACTION] Review failed for transaction %d: %v", transactionID, err)
			SendErrorResponse(w, "Failed to review transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *InfractionService) review(transactionID int, approved bool, note string, adminID int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	transaction, err := fetchTransactionForUpdate(tx, transactionID)
	if err != nil {
		return err
	}

	if transaction.Status != models.StatusInfraction {
		return ErrNotFlagged
	}

	review := &models.ReviewRecord{
		Approved: approved,
		Note:     note,
		Date:     time.Now(),
		AdminID:  adminID,
	}

	if err := s.resolveInfractionTx(tx, transaction, approved, review); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.audit.LogReview(transactionID, adminID, transaction.Amount, approved)
	log.Printf("[INFRACTION] Transaction %d reviewed by admin %d (approved=%v)", transactionID, adminID, approved)
	return nil
}

// resolveInfractionTx performs the one-time INFRACTION exit. On
// approval the hold is released, the sender's debit leg finalized and
// the receiver credited; on denial only the hold is released. When
// the flag recorded no hold there is nothing to unwind and only the
// status changes.
func (s *InfractionService) resolveInfractionTx(tx *sql.Tx, transaction *models.Transaction, approved bool, review *models.ReviewRecord) error {
	held := transaction.Metadata.Infraction != nil && transaction.Metadata.Infraction.Held

	if held && transaction.Type == models.TypeTransfer && transaction.SenderID != nil {
		if approved && transaction.ReceiverID != nil {
			if _, _, err := s.ledger.LockWalletsTx(tx, *transaction.SenderID, *transaction.ReceiverID); err != nil {
				return err
			}
			if err := s.ledger.ReleaseTx(tx, *transaction.SenderID, transaction.Amount); err != nil {
				return err
			}
			if err := s.ledger.DebitTx(tx, *transaction.SenderID, transaction.Amount); err != nil {
				return err
			}
			if err := s.ledger.CreditTx(tx, *transaction.ReceiverID, transaction.Amount); err != nil {
				return err
			}
		} else {
			if _, err := s.ledger.LockWalletTx(tx, *transaction.SenderID); err != nil {
				return err
			}
			if err := s.ledger.ReleaseTx(tx, *transaction.SenderID, transaction.Amount); err != nil {
				return err
			}
		}
	}

	if approved {
		transaction.Status = models.StatusCompleted
	} else {
		transaction.Status = models.StatusFailed
	}
	transaction.Metadata.Review = review

	return updateTransactionStatusTx(tx, transaction)
}

// fetchTransactionForUpdate loads and row-locks a transaction so the
// status transition it precedes is serialized per transaction.
func fetchTransactionForUpdate(tx *sql.Tx, transactionID int) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	var metadataJSON []byte
	var description sql.NullString
	err := tx.QueryRow(`
		SELECT id, amount, type, status, sender_id, receiver_id, description, metadata, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE`, transactionID).Scan(
		&transaction.ID, &transaction.Amount, &transaction.Type, &transaction.Status,
		&transaction.SenderID, &transaction.ReceiverID, &description, &metadataJSON, &transaction.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	transaction.Description = description.String
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &transaction.Metadata); err != nil {
			return nil, err
		}
	}
	return transaction, nil
}

func updateTransactionStatusTx(tx *sql.Tx, transaction *models.Transaction) error {
	metadataJSON, err := json.Marshal(transaction.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`UPDATE transactions SET status = $1, metadata = $2 WHERE id = $3`,
		transaction.Status, metadataJSON, transaction.ID)
	return err
}

// decodeJSONBody applies the shared strict request-decoding rules.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errInvalidBody
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errMultipleJSON
	}
	return nil
}
