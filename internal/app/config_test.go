package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/questline-backend/internal/data/db"
	"github.com/yungbote/questline-backend/internal/modules/gamification"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "QUIZ_XP_PER_LEVEL", "COURSE_XP_PER_LEVEL", "MAX_HEARTS", "STREAK_WINDOW_HOURS", "TX_RETRY_BACKOFF_MS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(nil)
	if cfg.Port != "8080" || cfg.DB.Driver != db.DriverPostgres {
		t.Fatalf("defaults: port=%q driver=%q", cfg.Port, cfg.DB.Driver)
	}
	if cfg.Engine.QuizXPPerLevel != gamification.DefaultQuizXPPerLevel || cfg.Engine.CourseXPPerLevel != gamification.DefaultCourseXPPerLevel {
		t.Fatalf("divisors: %+v", cfg.Engine)
	}
	if cfg.Engine.StreakWindow != 24*time.Hour || cfg.TxRetryBackoff != 25*time.Millisecond {
		t.Fatalf("durations: window=%s backoff=%s", cfg.Engine.StreakWindow, cfg.TxRetryBackoff)
	}
	if len(cfg.Engine.QuizRewardTiers) == 0 {
		t.Fatalf("reward tiers not defaulted")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("COURSE_XP_PER_LEVEL", "250")
	t.Setenv("MAX_HEARTS", "3")
	t.Setenv("STREAK_WINDOW_HOURS", "36")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg := LoadConfig(nil)
	if cfg.DB.Driver != db.DriverSQLite {
		t.Fatalf("driver: got=%q", cfg.DB.Driver)
	}
	if cfg.Engine.CourseXPPerLevel != 250 || cfg.Engine.MaxHearts != 3 {
		t.Fatalf("engine: %+v", cfg.Engine)
	}
	if cfg.Engine.StreakWindow != 36*time.Hour {
		t.Fatalf("streak window: got=%s", cfg.Engine.StreakWindow)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: %q", cfg.CORSOrigins)
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("QL_TEST_FROM_FILE=file\nQL_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("QL_TEST_PRESET", "process")
	t.Cleanup(func() { _ = os.Unsetenv("QL_TEST_FROM_FILE") })

	LoadEnvFile(nil, path)
	if got := os.Getenv("QL_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("from file: got=%q want=%q", got, "file")
	}
	if got := os.Getenv("QL_TEST_PRESET"); got != "process" {
		t.Fatalf("preset: got=%q want=%q", got, "process")
	}
}
