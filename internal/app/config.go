package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/questline-backend/internal/data/db"
	"github.com/yungbote/questline-backend/internal/modules/gamification"
	"github.com/yungbote/questline-backend/internal/platform/envutil"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string

	DB        db.Config
	RedisAddr string

	JWTSecretKey string
	JWTIssuer    string
	TokenTTL     time.Duration

	Engine gamification.Config

	TxMaxAttempts  int
	TxRetryBackoff time.Duration
	QuizCacheTTL   time.Duration

	CORSOrigins []string
	ServiceName string
}

// LoadEnvFile reads path (".env" when empty) into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(log *logger.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if log != nil {
			log.Debug("no env file loaded", "path", path, "error", err)
		}
		return
	}
	if log != nil {
		log.Info("loaded env file", "path", path)
	}
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		DB: db.Config{
			Driver: envutil.String("DB_DRIVER", db.DriverPostgres),
			Postgres: db.PostgresConfig{
				Host:     envutil.String("POSTGRES_HOST", "localhost"),
				Port:     envutil.String("POSTGRES_PORT", "5432"),
				User:     envutil.String("POSTGRES_USER", "postgres"),
				Password: envutil.String("POSTGRES_PASSWORD", ""),
				Name:     envutil.String("POSTGRES_NAME", "questline"),
				SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			},
			SQLitePath: envutil.String("SQLITE_PATH", "questline.db"),
		},
		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),
		TokenTTL:     envutil.Duration("JWT_TOKEN_TTL", 24*time.Hour, time.Second),
		Engine: gamification.Config{
			QuizXPPerLevel:        envutil.Int64("QUIZ_XP_PER_LEVEL", gamification.DefaultQuizXPPerLevel),
			CourseXPPerLevel:      envutil.Int64("COURSE_XP_PER_LEVEL", gamification.DefaultCourseXPPerLevel),
			AchievementXPPerLevel: envutil.Int64("ACHIEVEMENT_XP_PER_LEVEL", gamification.DefaultAchievementXPPerLevel),
			MaxHearts:             envutil.Int("MAX_HEARTS", gamification.DefaultMaxHearts),
			StreakWindow:          envutil.Duration("STREAK_WINDOW_HOURS", gamification.DefaultStreakWindow, time.Hour),
		}.WithDefaults(),
		TxMaxAttempts:  envutil.Int("TX_MAX_ATTEMPTS", 3),
		TxRetryBackoff: envutil.Duration("TX_RETRY_BACKOFF_MS", 25*time.Millisecond, time.Millisecond),
		QuizCacheTTL:   envutil.Duration("QUIZ_CACHE_TTL_SECONDS", 5*time.Minute, time.Second),
		CORSOrigins:    envutil.List("CORS_ALLOWED_ORIGINS"),
		ServiceName:    envutil.String("OTEL_SERVICE_NAME", "questline"),
	}
	if cfg.JWTSecretKey == "" && log != nil {
		log.Warn("JWT_SECRET_KEY is not set; every /api request will be rejected")
	}
	return cfg
}
