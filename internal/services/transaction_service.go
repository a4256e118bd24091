package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/payquick/backend/internal/audit"
	"github.com/payquick/backend/internal/models"
)

// TransactionService serves transaction queries and the admin status
// override.
type TransactionService struct {
	db          *sql.DB
	infractions *InfractionService
	audit       *audit.AuditLogger
}

type StatusOverrideRequest struct {
	Status string `json:"status"`
}

func NewTransactionService(db *sql.DB) *TransactionService {
	return &TransactionService{
		db:          db,
		infractions: NewInfractionService(db),
		audit:       audit.NewAuditLogger(),
	}
}

// ListTransactions retrieves the caller's transactions with optional filters
// @Summary List transactions
// @Description Get the authenticated user's transactions, newest first, with optional type and status filters
// @Tags transactions
// @Produce json
// @Param types query string false "Comma-separated transaction types"
// @Param status query string false "Comma-separated transaction statuses"
// @Success 200 {array} models.Transaction
// @Failure 500 {object} ErrorResponse
// @Router /transactions [get]
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	types, statuses, err := parseTransactionFilters(r)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	transactions, err := ts.fetchTransactions(&userID, types, statuses)
	if err != nil {
		log.Printf("[TRANSACTIONS] Failed to fetch transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// AdminListTransactions retrieves all transactions with optional filters
// @Summary List all transactions
// @Description Get all transactions across users, newest first, with sender and receiver usernames in metadata
// @Tags admin
// @Produce json
// @Param types query string false "Comma-separated transaction types"
// @Param status query string false "Comma-separated transaction statuses"
// @Success 200 {array} models.Transaction
// @Failure 500 {object} ErrorResponse
// @Router /admin/transactions [get]
func (ts *TransactionService) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	types, statuses, err := parseTransactionFilters(r)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	transactions, err := ts.fetchTransactions(nil, types, statuses)
	if err != nil {
		log.Printf("[ADMIN] Failed to fetch transactions: %v", err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// SetTransactionStatus applies an admin status override
// @Summary Override a transaction status
// @Description Set a transaction status directly; leaving INFRACTION runs the same hold-release bookkeeping as review
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param request body StatusOverrideRequest true "New status"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/transactions/{id}/status [put]
func (ts *TransactionService) SetTransactionStatus(w http.ResponseWriter, r *http.Request) {
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

	var req StatusOverrideRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if !models.ValidStatus(req.Status) {
		SendErrorResponse(w, "Invalid status", http.StatusBadRequest, nil)
		return
	}
	if req.Status == models.StatusInfraction {
		// Entering INFRACTION is owned by the flag endpoint, which
		// also places the hold.
		SendErrorResponse(w, "Use the flag endpoint to mark infractions", http.StatusBadRequest, nil)
		return
	}

	transaction, err := ts.overrideStatus(transactionID, req.Status, adminID)
	if err != nil {
		switch err {
		case ErrTransactionNotFound:
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		default:
			log.Printf("[ADMIN] Status override failed for transaction %d: %v", transactionID, err)
			SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transaction)
}

// overrideStatus applies a direct status change. Exiting INFRACTION
// re-runs the review bookkeeping (approved when the target status is
// COMPLETED) so blocked funds can never be stranded by the override.
func (ts *TransactionService) overrideStatus(transactionID int, status string, adminID int) (*models.Transaction, error) {
	tx, err := ts.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	transaction, err := fetchTransactionForUpdate(tx, transactionID)
	if err != nil {
		return nil, err
	}

	previous := transaction.Status
	if previous == status {
		return transaction, tx.Commit()
	}

	if previous == models.StatusInfraction {
		approved := status == models.StatusCompleted
		review := &models.ReviewRecord{
			Approved: approved,
			Note:     "status override",
			Date:     time.Now(),
			AdminID:  adminID,
		}
		if err := ts.infractions.resolveInfractionTx(tx, transaction, approved, review); err != nil {
			return nil, err
		}
		// resolveInfractionTx only produces COMPLETED or FAILED; a
		// PENDING target is coerced to the review outcome.
	} else {
		transaction.Status = status
		if err := updateTransactionStatusTx(tx, transaction); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ts.audit.LogStatusOverride(transactionID, adminID, previous, transaction.Status)
	return transaction, nil
}

func parseTransactionFilters(r *http.Request) ([]string, []string, error) {
	var types, statuses []string

	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if !models.ValidType(t) {
				return nil, nil, fmt.Errorf("invalid transaction type: %s", t)
			}
			types = append(types, t)
		}
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if !models.ValidStatus(s) {
				return nil, nil, fmt.Errorf("invalid transaction status: %s", s)
			}
			statuses = append(statuses, s)
		}
	}

	return types, statuses, nil
}

// fetchTransactions returns transactions newest first. A nil userID
// means the admin view across all users; otherwise only transactions
// the user sent or received are returned. Sender and receiver
// usernames are denormalized into metadata for display.
func (ts *TransactionService) fetchTransactions(userID *int, types, statuses []string) ([]models.Transaction, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	baseQuery := `
		SELECT t.id, t.amount, t.type, t.status, t.sender_id, t.receiver_id,
		       COALESCE(t.description, ''), t.metadata, t.created_at,
		       COALESCE(su.username, ''), COALESCE(ru.username, '')
		FROM transactions t
		LEFT JOIN users su ON t.sender_id = su.id
		LEFT JOIN users ru ON t.receiver_id = ru.id
	`

	if userID != nil {
		conditions = append(conditions, fmt.Sprintf("(t.sender_id = $%d OR t.receiver_id = $%d)", argIndex, argIndex))
		args = append(args, *userID)
		argIndex++
	}

	if len(types) > 0 {
		conditions = append(conditions, fmt.Sprintf("t.type = ANY($%d)", argIndex))
		args = append(args, pq.Array(types))
		argIndex++
	}

	if len(statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("t.status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := ts.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var metadataJSON []byte
		var senderUsername, receiverUsername string
		err := rows.Scan(
			&tx.ID, &tx.Amount, &tx.Type, &tx.Status, &tx.SenderID, &tx.ReceiverID,
			&tx.Description, &metadataJSON, &tx.CreatedAt,
			&senderUsername, &receiverUsername,
		)
		if err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
				return nil, err
			}
		}
		if tx.Metadata.SenderUsername == "" {
			tx.Metadata.SenderUsername = senderUsername
		}
		if tx.Metadata.ReceiverUsername == "" {
			tx.Metadata.ReceiverUsername = receiverUsername
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}
