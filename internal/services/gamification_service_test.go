package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/payquick/backend/internal/config"
	"github.com/payquick/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGamificationService_LevelFor(t *testing.T) {
	service := NewGamificationService(nil, nil, config.LoadGamificationConfig())

	tests := []struct {
		monthlyRevenue int64
		expected       string
	}{
		{0, models.LevelBronze},
		{9999, models.LevelBronze},
		{10000, models.LevelSilver},
		{49999, models.LevelSilver},
		{50000, models.LevelGold},
		{100000, models.LevelPlatinum},
		{499999, models.LevelPlatinum},
		{500000, models.LevelChallenger},
		{2000000, models.LevelChallenger},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, service.levelFor(tt.monthlyRevenue), "revenue %d", tt.monthlyRevenue)
	}
}

func TestGamificationService_RecalculateLevel(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewGamificationService(db, nil, config.LoadGamificationConfig())

	t.Run("promotes user on monthly received volume", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\), COUNT\\(\\*\\) FROM transactions").
			WithArgs(1, models.StatusCompleted, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(60000, 12))
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
			WithArgs(1, models.StatusCompleted).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(250000))
		mock.ExpectExec("UPDATE users SET level = \\$1, monthly_revenue = \\$2, total_revenue = \\$3").
			WithArgs(models.LevelGold, int64(60000), int64(250000), 12, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.RecalculateLevel(1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\), COUNT\\(\\*\\) FROM transactions").
			WithArgs(99, models.StatusCompleted, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(0, 0))
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
			WithArgs(99, models.StatusCompleted).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
		mock.ExpectExec("UPDATE users SET level = \\$1, monthly_revenue = \\$2, total_revenue = \\$3").
			WithArgs(models.LevelBronze, int64(0), int64(0), 0, 99).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.RecalculateLevel(99)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
