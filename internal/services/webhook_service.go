package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/payquick/backend/internal/models"
)

// WebhookService manages merchant webhook endpoints.
type WebhookService struct {
	db        *sql.DB
	validator *validator.Validate
}

// WebhookRequest represents the webhook creation payload
// @Description Webhook creation request structure
type WebhookRequest struct {
	URL  string `json:"url" validate:"required,url,max=500" example:"https://merchant.example.com/hooks/payquick"`
	Type string `json:"type" validate:"required,oneof=TRANSACTION INFRACTION WITHDRAWAL" example:"TRANSACTION"`
}

func NewWebhookService(db *sql.DB) *WebhookService {
	return &WebhookService{db: db, validator: validator.New()}
}

// ListWebhooks lists the authenticated user's webhooks
// @Summary List webhooks
// @Tags webhooks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Webhook "Webhooks"
// @Router /webhooks [get]
func (s *WebhookService) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, url, type, created_at
		FROM webhooks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Printf("[WEBHOOKS] Failed to list webhooks for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch webhooks", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	hooks := make([]models.Webhook, 0)
	for rows.Next() {
		var hook models.Webhook
		if err := rows.Scan(&hook.ID, &hook.UserID, &hook.URL, &hook.Type, &hook.CreatedAt); err != nil {
			log.Printf("[WEBHOOKS] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch webhooks", http.StatusInternalServerError, nil)
			return
		}
		hooks = append(hooks, hook)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hooks)
}

// CreateWebhook registers a webhook endpoint
// @Summary Create webhook
// @Description Register a webhook URL for an event type; one webhook per type per user
// @Tags webhooks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body WebhookRequest true "Webhook request"
// @Success 201 {object} models.Webhook "Created webhook"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Webhook already exists for type"
// @Router /webhooks [post]
func (s *WebhookService) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req WebhookRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM webhooks WHERE user_id = $1 AND type = $2)`,
		userID, req.Type).Scan(&exists)
	if err != nil {
		log.Printf("[WEBHOOKS] Existence check failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create webhook", http.StatusInternalServerError, nil)
		return
	}
	if exists {
		SendErrorResponse(w, "A webhook already exists for this event type", http.StatusConflict, nil)
		return
	}

	hook := models.Webhook{
		ID:        uuid.New().String(),
		UserID:    userID,
		URL:       req.URL,
		Type:      req.Type,
		CreatedAt: time.Now(),
	}

	_, err = s.db.Exec(`
		INSERT INTO webhooks (id, user_id, url, type, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		hook.ID, hook.UserID, hook.URL, hook.Type, hook.CreatedAt)
	if err != nil {
		log.Printf("[WEBHOOKS] Creation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create webhook", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[WEBHOOKS] Created %s webhook %s for user %d", hook.Type, hook.ID, userID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(hook)
}

// DeleteWebhook removes a webhook endpoint
// @Summary Delete webhook
// @Tags webhooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Webhook ID"
// @Success 200 {object} map[string]string "Deleted"
// @Failure 404 {object} ErrorResponse "Webhook not found"
// @Router /webhooks/{id} [delete]
func (s *WebhookService) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	hookID := chi.URLParam(r, "id")

	result, err := s.db.Exec(`DELETE FROM webhooks WHERE id = $1 AND user_id = $2`, hookID, userID)
	if err != nil {
		log.Printf("[WEBHOOKS] Deletion failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete webhook", http.StatusInternalServerError, nil)
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		SendErrorResponse(w, "Webhook not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Webhook deleted"})
}
