package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/payquick/backend/internal/config"
	"github.com/payquick/backend/internal/models"
)

// GamificationService recalculates merchant levels from received
// transaction volume. Recalculation runs outside transfer transactions,
// driven by queue events published after commit.
type GamificationService struct {
	db     *sql.DB
	redis  *redis.Client
	config *config.GamificationConfig
}

func NewGamificationService(db *sql.DB, redisClient *redis.Client, cfg *config.GamificationConfig) *GamificationService {
	return &GamificationService{db: db, redis: redisClient, config: cfg}
}

// RecalculateLevel recomputes a user's level from COMPLETED received
// volume within the trailing revenue window and persists the result.
func (s *GamificationService) RecalculateLevel(userID int) error {
	windowStart := time.Now().Add(-s.config.RevenueWindow)

	var monthlyRevenue int64
	var monthlyCount int
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE receiver_id = $1 AND status = $2 AND created_at >= $3`,
		userID, models.StatusCompleted, windowStart).Scan(&monthlyRevenue, &monthlyCount)
	if err != nil {
		return err
	}

	var totalRevenue int64
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE receiver_id = $1 AND status = $2`,
		userID, models.StatusCompleted).Scan(&totalRevenue)
	if err != nil {
		return err
	}

	level := s.levelFor(monthlyRevenue)

	result, err := s.db.Exec(`
		UPDATE users SET level = $1, monthly_revenue = $2, total_revenue = $3,
		       transaction_count = $4, last_level_update = NOW(), updated_at = NOW()
		WHERE id = $5`,
		level, monthlyRevenue, totalRevenue, monthlyCount, userID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}

	log.Printf("[GAMIFICATION] User %d recalculated - level %s, monthly revenue %d", userID, level, monthlyRevenue)
	return nil
}

func (s *GamificationService) levelFor(monthlyRevenue int64) string {
	switch {
	case monthlyRevenue >= s.config.ChallengerThreshold:
		return models.LevelChallenger
	case monthlyRevenue >= s.config.PlatinumThreshold:
		return models.LevelPlatinum
	case monthlyRevenue >= s.config.GoldThreshold:
		return models.LevelGold
	case monthlyRevenue >= s.config.SilverThreshold:
		return models.LevelSilver
	default:
		return models.LevelBronze
	}
}

// StartWorker consumes level recalculation events from the queue until
// the context is cancelled. Malformed or failed events are logged and
// dropped; later transfers enqueue fresh events for the same user.
func (s *GamificationService) StartWorker(ctx context.Context) {
	if s.redis == nil {
		log.Printf("[GAMIFICATION] Redis unavailable - level recalculation worker disabled")
		return
	}

	log.Printf("[GAMIFICATION] Level recalculation worker started on queue %s", s.config.QueueName)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[GAMIFICATION] Level recalculation worker stopped")
			return
		default:
		}

		result, err := s.redis.BLPop(ctx, 5*time.Second, s.config.QueueName).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[GAMIFICATION] Queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var event levelRecalcEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			log.Printf("[GAMIFICATION] Malformed queue event dropped: %v", err)
			continue
		}

		if err := s.RecalculateLevel(event.UserID); err != nil {
			log.Printf("[GAMIFICATION] Recalculation failed for user %d: %v", event.UserID, err)
		}
	}
}
