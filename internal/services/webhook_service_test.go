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

func webhookPost(userID int, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	r := httptest.NewRequest("POST", "/webhooks", bytes.NewBuffer(body))
	return r.WithContext(context.WithValue(r.Context(), "userID", userID))
}

func TestWebhookService_CreateWebhook(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWebhookService(db)

	t.Run("creates webhook", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM webhooks WHERE user_id = \\$1 AND type = \\$2\\)").
			WithArgs(1, "TRANSACTION").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("INSERT INTO webhooks").
			WithArgs(sqlmock.AnyArg(), 1, "https://merchant.example.com/hooks", "TRANSACTION", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := httptest.NewRecorder()
		service.CreateWebhook(w, webhookPost(1, WebhookRequest{URL: "https://merchant.example.com/hooks", Type: "TRANSACTION"}))

		assert.Equal(t, http.StatusCreated, w.Code)
		var hook models.Webhook
		json.Unmarshal(w.Body.Bytes(), &hook)
		assert.NotEmpty(t, hook.ID)
		assert.Equal(t, "TRANSACTION", hook.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate type rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM webhooks WHERE user_id = \\$1 AND type = \\$2\\)").
			WithArgs(1, "TRANSACTION").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		w := httptest.NewRecorder()
		service.CreateWebhook(w, webhookPost(1, WebhookRequest{URL: "https://merchant.example.com/hooks", Type: "TRANSACTION"}))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid url rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.CreateWebhook(w, webhookPost(1, WebhookRequest{URL: "not-a-url", Type: "TRANSACTION"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown event type rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.CreateWebhook(w, webhookPost(1, WebhookRequest{URL: "https://merchant.example.com/hooks", Type: "EVERYTHING"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebhookService_ListAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWebhookService(db)

	t.Run("lists webhooks", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, url, type, created_at FROM webhooks").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "url", "type", "created_at"}).
				AddRow("hook-1", 1, "https://merchant.example.com/hooks", "TRANSACTION", time.Now()))

		w := httptest.NewRecorder()
		service.ListWebhooks(w, authedRequest("GET", "/webhooks", 1))

		assert.Equal(t, http.StatusOK, w.Code)
		var hooks []models.Webhook
		json.Unmarshal(w.Body.Bytes(), &hooks)
		assert.Len(t, hooks, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	router := chi.NewRouter()
	router.Delete("/webhooks/{id}", service.DeleteWebhook)

	t.Run("deletes owned webhook", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM webhooks WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("hook-1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/webhooks/hook-1", 1))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown webhook", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM webhooks WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("hook-x", 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/webhooks/hook-x", 1))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
