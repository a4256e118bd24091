package services

import (
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/payquick/backend/internal/models"
)

// CredentialService manages merchant API keys.
type CredentialService struct {
	db *sql.DB
}

func NewCredentialService(db *sql.DB) *CredentialService {
	return &CredentialService{db: db}
}

// ListCredentials lists the authenticated user's API keys
// @Summary List API keys
// @Description List all API keys for the authenticated user
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ApiKey "API keys"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /credentials [get]
func (s *CredentialService) ListCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, client_id, client_secret, status, created_at
		FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Printf("[CREDENTIALS] Failed to list keys for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch credentials", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	keys := make([]models.ApiKey, 0)
	for rows.Next() {
		var key models.ApiKey
		if err := rows.Scan(&key.ID, &key.UserID, &key.ClientID, &key.ClientSecret, &key.Status, &key.CreatedAt); err != nil {
			log.Printf("[CREDENTIALS] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch credentials", http.StatusInternalServerError, nil)
			return
		}
		keys = append(keys, key)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keys)
}

// CreateCredential creates a new API key
// @Summary Create API key
// @Description Create a new API key; any previously active key is revoked
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.ApiKey "Created API key"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /credentials [post]
func (s *CredentialService) CreateCredential(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	secret := make([]byte, 32)
	if _, err := cryptorand.Read(secret); err != nil {
		log.Printf("[CREDENTIALS] Secret generation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create credential", http.StatusInternalServerError, nil)
		return
	}

	key := models.ApiKey{
		UserID:       userID,
		ClientID:     uuid.New().String(),
		ClientSecret: hex.EncodeToString(secret),
		Status:       models.KeyActive,
		CreatedAt:    time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[CREDENTIALS] Transaction start failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create credential", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	// Only one active key per user
	_, err = tx.Exec(`UPDATE api_keys SET status = $1 WHERE user_id = $2 AND status = $3`,
		models.KeyRevoked, userID, models.KeyActive)
	if err != nil {
		log.Printf("[CREDENTIALS] Key rotation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create credential", http.StatusInternalServerError, nil)
		return
	}

	err = tx.QueryRow(`
		INSERT INTO api_keys (user_id, client_id, client_secret, status, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		key.UserID, key.ClientID, key.ClientSecret, key.Status, key.CreatedAt).Scan(&key.ID)
	if err != nil {
		log.Printf("[CREDENTIALS] Key creation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create credential", http.StatusInternalServerError, nil)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[CREDENTIALS] Commit failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create credential", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[CREDENTIALS] Created key %s for user %d", key.ClientID, userID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(key)
}

// RevokeCredential revokes an API key
// @Summary Revoke API key
// @Description Revoke an API key owned by the authenticated user
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} map[string]string "Revoked"
// @Failure 404 {object} ErrorResponse "Key not found"
// @Router /credentials/{id} [delete]
func (s *CredentialService) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	clientID := chi.URLParam(r, "id")

	result, err := s.db.Exec(`
		UPDATE api_keys SET status = $1
		WHERE client_id = $2 AND user_id = $3 AND status = $4`,
		models.KeyRevoked, clientID, userID, models.KeyActive)
	if err != nil {
		log.Printf("[CREDENTIALS] Revocation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to revoke credential", http.StatusInternalServerError, nil)
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		SendErrorResponse(w, "API key not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[CREDENTIALS] Revoked key %s for user %d", clientID, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "API key revoked"})
}
