package config

import (
	"os"
	"strconv"
	"time"
)

// GamificationConfig holds the merchant level thresholds, expressed in
// minor currency units of monthly received volume.
type GamificationConfig struct {
	SilverThreshold     int64
	GoldThreshold       int64
	PlatinumThreshold   int64
	ChallengerThreshold int64
	RevenueWindow       time.Duration
	QueueName           string
}

func LoadGamificationConfig() *GamificationConfig {
	return &GamificationConfig{
		SilverThreshold:     getEnvAsInt64("LEVEL_SILVER_THRESHOLD", 10000),
		GoldThreshold:       getEnvAsInt64("LEVEL_GOLD_THRESHOLD", 50000),
		PlatinumThreshold:   getEnvAsInt64("LEVEL_PLATINUM_THRESHOLD", 100000),
		ChallengerThreshold: getEnvAsInt64("LEVEL_CHALLENGER_THRESHOLD", 500000),
		RevenueWindow:       getEnvAsDuration("LEVEL_REVENUE_WINDOW", 30*24*time.Hour),
		QueueName:           getEnv("LEVEL_RECALC_QUEUE", "level_recalc_queue"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
