package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/payquick/backend/internal/audit"
	"github.com/payquick/backend/internal/config"
	"github.com/payquick/backend/internal/models"
)

// TransferService executes peer-to-peer transfers: both wallet
// mutations and the transaction record commit as one unit.
type TransferService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *LedgerService
	audit     *audit.AuditLogger
	validator *ValidationHelper
	queueName string
}

type TransferRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=200"`
}

func NewTransferService(db *sql.DB, redisClient *redis.Client) *TransferService {
	return &TransferService{
		db:        db,
		redis:     redisClient,
		ledger:    NewLedgerService(db),
		audit:     audit.NewAuditLogger(),
		validator: NewValidationHelper(),
		queueName: config.LoadGamificationConfig().QueueName,
	}
}

// Transfer handles peer-to-peer transfers between wallets
// @Summary Transfer funds to another user
// @Description Move funds from the authenticated user's wallet to another user, resolved by username
// @Tags transactions
// @Accept json
// @Produce json
// @Param transfer body TransferRequest true "Transfer data"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /transactions/transfer [post]
func (ts *TransferService) Transfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req TransferRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	transaction, err := ts.executeTransfer(senderID, req.Username, req.Amount, req.Description)
	if err != nil {
		switch err {
		case ErrInvalidAmount:
			SendErrorResponse(w, "Amount must be positive", http.StatusBadRequest, nil)
		case ErrReceiverNotFound:
			SendErrorResponse(w, "Receiver not found", http.StatusNotFound, nil)
		case ErrInsufficientFunds:
			SendErrorResponse(w, "Insufficient funds", http.StatusBadRequest, nil)
		case ErrWalletNotFound:
			SendErrorResponse(w, "Wallet not found", http.StatusInternalServerError, nil)
		default:
			ts.audit.LogError(0, senderID, err)
			SendErrorResponse(w, "Failed to process transfer", http.StatusInternalServerError, nil)
		}
		return
	}

	ts.audit.LogTransfer(transaction.ID, senderID, *transaction.ReceiverID, transaction.Amount, transaction.Status)

	// Best-effort level recalculation for the receiver; never rolls
	// back or fails the committed transfer.
	ts.enqueueLevelRecalc(r.Context(), *transaction.ReceiverID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transaction)
}

func (ts *TransferService) executeTransfer(senderID int, receiverUsername string, amount int64, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var receiverID int
	err := ts.db.QueryRow(`SELECT id FROM users WHERE username = $1`, receiverUsername).Scan(&receiverID)
	if err == sql.ErrNoRows {
		return nil, ErrReceiverNotFound
	}
	if err != nil {
		return nil, err
	}

	if receiverID == senderID {
		return nil, ErrReceiverNotFound
	}

	var senderUsername string
	if err := ts.db.QueryRow(`SELECT username FROM users WHERE id = $1`, senderID).Scan(&senderUsername); err != nil {
		return nil, err
	}

	tx, err := ts.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock both wallets in ascending id order, then apply both legs.
	if _, _, err := ts.ledger.LockWalletsTx(tx, senderID, receiverID); err != nil {
		return nil, err
	}

	if err := ts.ledger.DebitTx(tx, senderID, amount); err != nil {
		return nil, err
	}

	if err := ts.ledger.CreditTx(tx, receiverID, amount); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		Amount:      amount,
		Type:        models.TypeTransfer,
		Status:      models.StatusCompleted,
		SenderID:    &senderID,
		ReceiverID:  &receiverID,
		Description: description,
		Metadata: models.TransactionMetadata{
			SenderUsername:   senderUsername,
			ReceiverUsername: receiverUsername,
		},
	}

	metadataJSON, err := json.Marshal(transaction.Metadata)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(`
		INSERT INTO transactions (amount, type, status, sender_id, receiver_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`,
		amount, transaction.Type, transaction.Status, senderID, receiverID, description, metadataJSON,
	).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[TRANSFER] Completed transfer %d: %d -> %d, amount %d", transaction.ID, senderID, receiverID, amount)
	return transaction, nil
}

type levelRecalcEvent struct {
	UserID int `json:"userId"`
}

func (ts *TransferService) enqueueLevelRecalc(ctx context.Context, userID int) {
	if ts.redis == nil {
		return
	}
	data, err := json.Marshal(levelRecalcEvent{UserID: userID})
	if err != nil {
		log.Printf("[TRANSFER] Failed to marshal level recalc event: %v", err)
		return
	}
	if err := ts.redis.RPush(ctx, ts.queueName, data).Err(); err != nil {
		log.Printf("[TRANSFER] Failed to queue level recalc for user %d: %v", userID, err)
	}
}
