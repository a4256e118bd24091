package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/payquick/backend/internal/models"
)

// DashboardService serves per-merchant activity summaries.
type DashboardService struct {
	db *sql.DB
}

// DashboardStats is the merchant dashboard summary.
type DashboardStats struct {
	Wallet           *models.Wallet `json:"wallet,omitempty"`
	Level            string         `json:"level"`
	MonthlyRevenue   int64          `json:"monthlyRevenue"`
	TotalRevenue     int64          `json:"totalRevenue"`
	TransactionCount int            `json:"transactionCount"`
	ReceivedToday    int64          `json:"receivedToday"`
	SentToday        int64          `json:"sentToday"`
	PendingCount     int            `json:"pendingCount"`
	InfractionCount  int            `json:"infractionCount"`
}

func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats returns the merchant dashboard summary
// @Summary Dashboard statistics
// @Description Wallet snapshot, level and daily activity for the authenticated user
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DashboardStats "Statistics"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /dashboard/stats [get]
func (s *DashboardService) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var stats DashboardStats

	err := s.db.QueryRow(`
		SELECT level, monthly_revenue, total_revenue, transaction_count
		FROM users WHERE id = $1`, userID).Scan(
		&stats.Level, &stats.MonthlyRevenue, &stats.TotalRevenue, &stats.TransactionCount)
	if err != nil {
		log.Printf("[DASHBOARD] User query failed for %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch dashboard", http.StatusInternalServerError, nil)
		return
	}

	var wallet models.Wallet
	err = s.db.QueryRow(`
		SELECT user_id, balance, available_balance, blocked_balance, version, updated_at
		FROM wallets WHERE user_id = $1`, userID).Scan(
		&wallet.UserID, &wallet.Balance, &wallet.AvailableBalance,
		&wallet.BlockedBalance, &wallet.Version, &wallet.UpdatedAt)
	if err == nil {
		stats.Wallet = &wallet
	}

	dayStart := time.Now().Truncate(24 * time.Hour)

	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(amount) FILTER (WHERE receiver_id = $1 AND status = $2), 0),
		       COALESCE(SUM(amount) FILTER (WHERE sender_id = $1 AND status = $2), 0),
		       COUNT(*) FILTER (WHERE (sender_id = $1 OR receiver_id = $1) AND status = $3),
		       COUNT(*) FILTER (WHERE (sender_id = $1 OR receiver_id = $1) AND status = $4)
		FROM transactions WHERE created_at >= $5 OR status IN ($3, $4)`,
		userID, models.StatusCompleted, models.StatusPending, models.StatusInfraction, dayStart).Scan(
		&stats.ReceivedToday, &stats.SentToday, &stats.PendingCount, &stats.InfractionCount)
	if err != nil {
		log.Printf("[DASHBOARD] Activity query failed for %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch dashboard", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
