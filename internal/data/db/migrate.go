package db

import (
	"fmt"

	types "github.com/yungbote/questline-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureProgressIndexes(db)
}

func EnsureProgressIndexes(db *gorm.DB) error {
	// leaderboard fallback when redis is not configured
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_xp ON "user" (xp DESC, created_at ASC);`).Error; err != nil {
		return fmt.Errorf("create idx_user_xp: %w", err)
	}
	// per-user attempt history, newest first
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_quiz_attempt_user_completed
		ON quiz_attempt (user_id, completed_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_quiz_attempt_user_completed: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_xp_ledger_user
		ON xp_ledger_entry (user_id, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_xp_ledger_user: %w", err)
	}
	if !IsPostgres(db) {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_course_progress_user_completed
		ON course_progress (user_id)
		WHERE completed_at IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_course_progress_user_completed: %w", err)
	}
	return nil
}
