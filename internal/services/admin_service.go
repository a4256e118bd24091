package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/payquick/backend/internal/audit"
	"github.com/payquick/backend/internal/models"
)

// AdminService exposes the platform administration surface.
type AdminService struct {
	db           *sql.DB
	gamification *GamificationService
	audit        *audit.AuditLogger
	validator    *validator.Validate
}

// UserStatusRequest represents the user status update payload
// @Description User status update request structure
type UserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE BLOCKED" example:"ACTIVE"`
}

// PlatformRequest represents the platform branding payload
// @Description Platform branding update request structure
type PlatformRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100" example:"PayQuick"`
	LogoURL     string `json:"logoUrl" validate:"omitempty,url,max=500"`
	SupportMail string `json:"supportEmail" validate:"required,email"`
}

// AdquirenteRequest represents the acquirer update payload
// @Description Acquirer update request structure
type AdquirenteRequest struct {
	Enabled     *bool  `json:"enabled" validate:"required"`
	Credentials string `json:"credentials" validate:"omitempty,max=2000"`
}

// AdminUser is a user row joined with its wallet for admin listings.
type AdminUser struct {
	models.User
	Wallet *models.Wallet `json:"wallet,omitempty"`
}

// AdminStats aggregates platform-wide counters.
type AdminStats struct {
	TotalUsers          int   `json:"totalUsers"`
	ActiveUsers         int   `json:"activeUsers"`
	TotalTransactions   int   `json:"totalTransactions"`
	PendingTransactions int   `json:"pendingTransactions"`
	Infractions         int   `json:"infractions"`
	TotalVolume         int64 `json:"totalVolume"`
	BlockedFunds        int64 `json:"blockedFunds"`
}

func NewAdminService(db *sql.DB, gamification *GamificationService, auditLogger *audit.AuditLogger) *AdminService {
	return &AdminService{
		db:           db,
		gamification: gamification,
		audit:        auditLogger,
		validator:    validator.New(),
	}
}

// ListUsers lists all users with their wallets
// @Summary List users
// @Description List all users with wallet snapshots (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AdminUser "Users"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /admin/users [get]
func (s *AdminService) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT u.id, u.email, u.username, u.name, u.phone, u.cnpj, u.segment,
		       u.role, u.status, u.level, u.monthly_revenue, u.total_revenue,
		       u.transaction_count, u.created_at, u.updated_at,
		       w.balance, w.available_balance, w.blocked_balance, w.version, w.updated_at
		FROM users u
		LEFT JOIN wallets w ON w.user_id = u.id
		ORDER BY u.created_at DESC`)
	if err != nil {
		log.Printf("[ADMIN] Failed to list users: %v", err)
		SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	users := make([]AdminUser, 0)
	for rows.Next() {
		var u AdminUser
		var balance, available, blocked sql.NullInt64
		var version sql.NullInt64
		var walletUpdated sql.NullTime
		err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.Phone, &u.CNPJ,
			&u.Segment, &u.Role, &u.Status, &u.Level, &u.MonthlyRevenue,
			&u.TotalRevenue, &u.TransactionCount, &u.CreatedAt, &u.UpdatedAt,
			&balance, &available, &blocked, &version, &walletUpdated)
		if err != nil {
			log.Printf("[ADMIN] User scan failed: %v", err)
			SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
			return
		}
		if balance.Valid {
			u.Wallet = &models.Wallet{
				UserID:           u.ID,
				Balance:          balance.Int64,
				AvailableBalance: available.Int64,
				BlockedBalance:   blocked.Int64,
				Version:          int(version.Int64),
				UpdatedAt:        walletUpdated.Time,
			}
		}
		users = append(users, u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// SetUserStatus updates a user's account status
// @Summary Set user status
// @Description Set a user's status to ACTIVE, INACTIVE or BLOCKED (admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UserStatusRequest true "Status request"
// @Success 200 {object} map[string]string "Status updated"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /admin/users/{id}/status [patch]
func (s *AdminService) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value("userID").(int)

	targetID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid user ID", http.StatusBadRequest, nil)
		return
	}

	var req UserStatusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := s.db.Exec(`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`,
		req.Status, targetID)
	if err != nil {
		log.Printf("[ADMIN] Status update failed for user %d: %v", targetID, err)
		SendErrorResponse(w, "Failed to update status", http.StatusInternalServerError, nil)
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}

	s.audit.LogUserStatus(targetID, adminID, req.Status)
	log.Printf("[ADMIN] Admin %d set user %d status to %s", adminID, targetID, req.Status)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Status updated"})
}

// Stats returns platform-wide aggregates
// @Summary Platform statistics
// @Description Aggregate user, transaction and fund counters (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AdminStats "Statistics"
// @Router /admin/stats [get]
func (s *AdminService) Stats(w http.ResponseWriter, r *http.Request) {
	var stats AdminStats

	err := s.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM users`,
		models.UserActive).Scan(&stats.TotalUsers, &stats.ActiveUsers)
	if err != nil {
		log.Printf("[ADMIN] User stats query failed: %v", err)
		SendErrorResponse(w, "Failed to fetch statistics", http.StatusInternalServerError, nil)
		return
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COUNT(*) FILTER (WHERE status = $2),
		       COALESCE(SUM(amount) FILTER (WHERE status = $3), 0)
		FROM transactions`,
		models.StatusPending, models.StatusInfraction, models.StatusCompleted).Scan(
		&stats.TotalTransactions, &stats.PendingTransactions, &stats.Infractions, &stats.TotalVolume)
	if err != nil {
		log.Printf("[ADMIN] Transaction stats query failed: %v", err)
		SendErrorResponse(w, "Failed to fetch statistics", http.StatusInternalServerError, nil)
		return
	}

	err = s.db.QueryRow(`SELECT COALESCE(SUM(blocked_balance), 0) FROM wallets`).Scan(&stats.BlockedFunds)
	if err != nil {
		log.Printf("[ADMIN] Wallet stats query failed: %v", err)
		SendErrorResponse(w, "Failed to fetch statistics", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// RecalculateUserLevel forces a level recalculation for a user
// @Summary Recalculate user level
// @Description Recompute a user's merchant level immediately (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string "Recalculated"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /admin/users/{id}/recalculate [post]
func (s *AdminService) RecalculateUserLevel(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid user ID", http.StatusBadRequest, nil)
		return
	}

	if err := s.gamification.RecalculateLevel(targetID); err != nil {
		if err == ErrUserNotFound {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[ADMIN] Level recalculation failed for user %d: %v", targetID, err)
		SendErrorResponse(w, "Failed to recalculate level", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Level recalculated"})
}

// GetPlatform returns the platform branding record
// @Summary Get platform settings
// @Tags admin
// @Produce json
// @Success 200 {object} models.PlatformSettings "Platform settings"
// @Router /platform [get]
func (s *AdminService) GetPlatform(w http.ResponseWriter, r *http.Request) {
	var settings models.PlatformSettings
	err := s.db.QueryRow(`
		SELECT id, name, logo_url, support_email, updated_at
		FROM platform_settings LIMIT 1`).Scan(
		&settings.ID, &settings.Name, &settings.LogoURL, &settings.SupportMail, &settings.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// Defaults until an admin configures branding
			settings = models.PlatformSettings{Name: "PayQuick"}
		} else {
			log.Printf("[ADMIN] Platform settings query failed: %v", err)
			SendErrorResponse(w, "Failed to fetch platform settings", http.StatusInternalServerError, nil)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// UpdatePlatform updates the platform branding record
// @Summary Update platform settings
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlatformRequest true "Platform request"
// @Success 200 {object} models.PlatformSettings "Updated settings"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Router /admin/platform [put]
func (s *AdminService) UpdatePlatform(w http.ResponseWriter, r *http.Request) {
	var req PlatformRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var settings models.PlatformSettings
	err := s.db.QueryRow(`
		INSERT INTO platform_settings (id, name, logo_url, support_email, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = $1, logo_url = $2, support_email = $3, updated_at = NOW()
		RETURNING id, name, logo_url, support_email, updated_at`,
		req.Name, req.LogoURL, req.SupportMail).Scan(
		&settings.ID, &settings.Name, &settings.LogoURL, &settings.SupportMail, &settings.UpdatedAt)
	if err != nil {
		log.Printf("[ADMIN] Platform settings update failed: %v", err)
		SendErrorResponse(w, "Failed to update platform settings", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[ADMIN] Platform settings updated - name %s", settings.Name)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// ListAdquirentes lists acquirer configurations
// @Summary List acquirers
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Adquirente "Acquirers"
// @Router /admin/adquirentes [get]
func (s *AdminService) ListAdquirentes(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, name, enabled, COALESCE(credentials, ''), updated_at
		FROM adquirentes ORDER BY name`)
	if err != nil {
		log.Printf("[ADMIN] Failed to list acquirers: %v", err)
		SendErrorResponse(w, "Failed to fetch acquirers", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	acquirers := make([]models.Adquirente, 0)
	for rows.Next() {
		var a models.Adquirente
		if err := rows.Scan(&a.ID, &a.Name, &a.Enabled, &a.Credentials, &a.UpdatedAt); err != nil {
			log.Printf("[ADMIN] Acquirer scan failed: %v", err)
			SendErrorResponse(w, "Failed to fetch acquirers", http.StatusInternalServerError, nil)
			return
		}
		acquirers = append(acquirers, a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(acquirers)
}

// UpdateAdquirente updates an acquirer configuration
// @Summary Update acquirer
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Acquirer ID"
// @Param request body AdquirenteRequest true "Acquirer request"
// @Success 200 {object} map[string]string "Updated"
// @Failure 404 {object} ErrorResponse "Acquirer not found"
// @Router /admin/adquirentes/{id} [put]
func (s *AdminService) UpdateAdquirente(w http.ResponseWriter, r *http.Request) {
	acquirerID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid acquirer ID", http.StatusBadRequest, nil)
		return
	}

	var req AdquirenteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := s.db.Exec(`
		UPDATE adquirentes SET enabled = $1, credentials = COALESCE(NULLIF($2, ''), credentials), updated_at = NOW()
		WHERE id = $3`,
		*req.Enabled, req.Credentials, acquirerID)
	if err != nil {
		log.Printf("[ADMIN] Acquirer update failed for %d: %v", acquirerID, err)
		SendErrorResponse(w, "Failed to update acquirer", http.StatusInternalServerError, nil)
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		SendErrorResponse(w, "Acquirer not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Acquirer updated"})
}
