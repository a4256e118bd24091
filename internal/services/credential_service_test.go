package services

import (
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

func authedRequest(method, url string, userID int) *http.Request {
	r := httptest.NewRequest(method, url, nil)
	return r.WithContext(context.WithValue(r.Context(), "userID", userID))
}

func TestCredentialService_CreateCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCredentialService(db)

	t.Run("creates key and revokes previous active key", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE api_keys SET status = \\$1 WHERE user_id = \\$2 AND status = \\$3").
			WithArgs(models.KeyRevoked, 1, models.KeyActive).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO api_keys").
			WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg(), models.KeyActive, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
		mock.ExpectCommit()

		w := httptest.NewRecorder()
		service.CreateCredential(w, authedRequest("POST", "/credentials", 1))

		assert.Equal(t, http.StatusCreated, w.Code)
		var key models.ApiKey
		json.Unmarshal(w.Body.Bytes(), &key)
		assert.Equal(t, 5, key.ID)
		assert.Equal(t, models.KeyActive, key.Status)
		assert.NotEmpty(t, key.ClientID)
		assert.Len(t, key.ClientSecret, 64) // 32 random bytes hex encoded
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing auth context", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.CreateCredential(w, httptest.NewRequest("POST", "/credentials", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCredentialService_ListCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCredentialService(db)

	mock.ExpectQuery("SELECT id, user_id, client_id, client_secret, status, created_at FROM api_keys").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "client_id", "client_secret", "status", "created_at"}).
			AddRow(5, 1, "client-a", "secret-a", models.KeyActive, time.Now()).
			AddRow(4, 1, "client-b", "secret-b", models.KeyRevoked, time.Now().Add(-time.Hour)))

	w := httptest.NewRecorder()
	service.ListCredentials(w, authedRequest("GET", "/credentials", 1))

	assert.Equal(t, http.StatusOK, w.Code)
	var keys []models.ApiKey
	json.Unmarshal(w.Body.Bytes(), &keys)
	assert.Len(t, keys, 2)
	assert.Equal(t, models.KeyActive, keys[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialService_RevokeCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCredentialService(db)

	router := chi.NewRouter()
	router.Delete("/credentials/{id}", service.RevokeCredential)

	t.Run("revokes owned active key", func(t *testing.T) {
		mock.ExpectExec("UPDATE api_keys SET status = \\$1").
			WithArgs(models.KeyRevoked, "client-a", 1, models.KeyActive).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/credentials/client-a", 1))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown or foreign key", func(t *testing.T) {
		mock.ExpectExec("UPDATE api_keys SET status = \\$1").
			WithArgs(models.KeyRevoked, "client-x", 1, models.KeyActive).
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/credentials/client-x", 1))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
