package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/payquick/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func listRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "amount", "type", "status", "sender_id", "receiver_id", "description", "metadata", "created_at", "sender_username", "receiver_username"})
}

func TestTransactionService_ListTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db)

	t.Run("lists user transactions newest first", func(t *testing.T) {
		mock.ExpectQuery("SELECT t.id, t.amount, t.type, t.status, t.sender_id, t.receiver_id").
			WithArgs(1).
			WillReturnRows(listRows().
				AddRow(20, 500, models.TypeTransfer, models.StatusCompleted, 1, 2, "rent", []byte(`{}`), time.Now(), "alice", "bob").
				AddRow(19, 300, models.TypeDeposit, models.StatusCompleted, nil, 1, "", []byte(`{}`), time.Now().Add(-time.Hour), "", "alice"))

		r := httptest.NewRequest("GET", "/transactions", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", 1))
		w := httptest.NewRecorder()

		service.ListTransactions(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response []models.Transaction
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Len(t, response, 2)
		assert.Equal(t, 20, response[0].ID)
		assert.Equal(t, "alice", response[0].Metadata.SenderUsername)
		assert.Equal(t, "bob", response[0].Metadata.ReceiverUsername)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies type and status filters", func(t *testing.T) {
		mock.ExpectQuery("SELECT t.id, t.amount, t.type, t.status, t.sender_id, t.receiver_id").
			WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(listRows())

		r := httptest.NewRequest("GET", "/transactions?types=TRANSFER,DEPOSIT&status=COMPLETED", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", 1))
		w := httptest.NewRecorder()

		service.ListTransactions(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown type filter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/transactions?types=BOGUS", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", 1))
		w := httptest.NewRecorder()

		service.ListTransactions(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/transactions?status=MAYBE", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", 1))
		w := httptest.NewRecorder()

		service.ListTransactions(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionService_AdminListTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db)

	mock.ExpectQuery("SELECT t.id, t.amount, t.type, t.status, t.sender_id, t.receiver_id").
		WillReturnRows(listRows().
			AddRow(30, 900, models.TypeTransfer, models.StatusInfraction, 3, 4, "gear", []byte(`{"infraction":{"reason":"chargeback","date":"2026-01-01T00:00:00Z","adminId":9,"held":true}}`), time.Now(), "carol", "dave"))

	r := httptest.NewRequest("GET", "/admin/transactions", nil)
	r = r.WithContext(context.WithValue(r.Context(), "userID", 9))
	w := httptest.NewRecorder()

	service.AdminListTransactions(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []models.Transaction
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response, 1)
	assert.Equal(t, models.StatusInfraction, response[0].Status)
	assert.NotNil(t, response[0].Metadata.Infraction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func statusOverride(t *testing.T, service *TransactionService, id string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)

	router := chi.NewRouter()
	router.Put("/admin/transactions/{id}/status", service.SetTransactionStatus)

	r := httptest.NewRequest("PUT", "/admin/transactions/"+id+"/status", bytes.NewBuffer(body))
	r = r.WithContext(context.WithValue(r.Context(), "userID", 9))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestTransactionService_SetTransactionStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db)

	t.Run("plain status change", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(transactionSelectForUpdate).
			WithArgs(40).
			WillReturnRows(transactionRows(40, 700, models.TypeTransfer, models.StatusPending, 1, 2, `{}`))
		mock.ExpectExec("UPDATE transactions SET status = \\$1, metadata = \\$2 WHERE id = \\$3").
			WithArgs(models.StatusCompleted, sqlmock.AnyArg(), 40).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := statusOverride(t, service, "40", StatusOverrideRequest{Status: models.StatusCompleted})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaving infraction releases the hold", func(t *testing.T) {
		metadata := `{"infraction":{"reason":"chargeback","date":"2026-01-01T00:00:00Z","adminId":9,"held":true}}`

		mock.ExpectBegin()
		mock.ExpectQuery(transactionSelectForUpdate).
			WithArgs(41).
			WillReturnRows(transactionRows(41, 700, models.TypeTransfer, models.StatusInfraction, 1, 2, metadata))
		mock.ExpectQuery("SELECT user_id, balance, available_balance, blocked_balance, version, updated_at FROM wallets WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(lockedWalletRows(1, 4000, 700))
		mock.ExpectExec("UPDATE wallets SET blocked_balance = blocked_balance - \\$1, available_balance = available_balance \\+ \\$1").
			WithArgs(int64(700), sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions SET status = \\$1, metadata = \\$2 WHERE id = \\$3").
			WithArgs(models.StatusFailed, sqlmock.AnyArg(), 41).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := statusOverride(t, service, "41", StatusOverrideRequest{Status: models.StatusFailed})

		assert.Equal(t, http.StatusOK, w.Code)
		var response models.Transaction
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, models.StatusFailed, response.Status)
		assert.NotNil(t, response.Metadata.Review)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entering infraction is rejected", func(t *testing.T) {
		w := statusOverride(t, service, "40", StatusOverrideRequest{Status: models.StatusInfraction})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		w := statusOverride(t, service, "40", StatusOverrideRequest{Status: "LIMBO"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(transactionSelectForUpdate).
			WithArgs(42).
			WillReturnRows(transactionRows(42, 700, models.TypeTransfer, models.StatusCompleted, 1, 2, `{}`))
		mock.ExpectCommit()

		w := statusOverride(t, service, "42", StatusOverrideRequest{Status: models.StatusCompleted})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
