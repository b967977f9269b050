package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Scoring     ScoringConfig
	Interaction InteractionConfig
	Store       StoreConfig
	Mail        MailConfig
	Reports     ReportsConfig
	FinalScores FinalScoresConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScoringConfig holds the final score composition policy.
type ScoringConfig struct {
	VerifiedWeight    float64
	InteractionWeight float64
	InteractionScale  float64
	Ceiling           float64
	DesignationBonus  map[string]float64
}

// InteractionConfig lists the rater roles whose marks complete an interaction review.
type InteractionConfig struct {
	RequiredRaters []string
}

// StoreConfig tunes optimistic concurrency on the document store.
type StoreConfig struct {
	MaxWriteRetries int
}

// MailConfig configures SMTP delivery of credentials. An empty host disables SMTP.
type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	SkipTLS   bool
	Workers   int
	Retries   int
	LoginURL  string
	Institute string
}

// ReportsConfig configures appraisal document generation.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	RetainFor         time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// FinalScoresConfig governs caching of department final score listings.
type FinalScoresConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	bonus, err := parseWeights(v.GetString("SCORING_DESIGNATION_BONUS"))
	if err != nil {
		return nil, fmt.Errorf("SCORING_DESIGNATION_BONUS: %w", err)
	}
	cfg.Scoring = ScoringConfig{
		VerifiedWeight:    v.GetFloat64("SCORING_VERIFIED_WEIGHT"),
		InteractionWeight: v.GetFloat64("SCORING_INTERACTION_WEIGHT"),
		InteractionScale:  v.GetFloat64("SCORING_INTERACTION_SCALE"),
		Ceiling:           v.GetFloat64("SCORING_CEILING"),
		DesignationBonus:  bonus,
	}

	cfg.Interaction = InteractionConfig{
		RequiredRaters: splitAndTrim(v.GetString("INTERACTION_REQUIRED_RATERS")),
	}

	cfg.Store = StoreConfig{MaxWriteRetries: v.GetInt("STORE_MAX_WRITE_RETRIES")}

	cfg.Mail = MailConfig{
		Host:      v.GetString("SMTP_HOST"),
		Port:      v.GetInt("SMTP_PORT"),
		Username:  v.GetString("SMTP_USERNAME"),
		Password:  v.GetString("SMTP_PASSWORD"),
		From:      v.GetString("SMTP_FROM"),
		SkipTLS:   v.GetBool("SMTP_SKIP_TLS_VERIFY"),
		Workers:   v.GetInt("MAIL_WORKERS"),
		Retries:   v.GetInt("MAIL_RETRIES"),
		LoginURL:  v.GetString("MAIL_LOGIN_URL"),
		Institute: v.GetString("MAIL_INSTITUTE_NAME"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		RetainFor:         parseDuration(v.GetString("REPORTS_RETAIN_FOR"), 7*24*time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.FinalScores = FinalScoresConfig{
		CacheTTL: parseDuration(v.GetString("FINAL_SCORES_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fdw")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCORING_VERIFIED_WEIGHT", 850)
	v.SetDefault("SCORING_INTERACTION_WEIGHT", 150)
	v.SetDefault("SCORING_INTERACTION_SCALE", 100)
	v.SetDefault("SCORING_CEILING", 1000)
	v.SetDefault("SCORING_DESIGNATION_BONUS", "HOD=100,Dean=100,Associate Dean=50")

	v.SetDefault("INTERACTION_REQUIRED_RATERS", "external,dean,hod")
	v.SetDefault("STORE_MAX_WRITE_RETRIES", 5)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_SKIP_TLS_VERIFY", false)
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_RETRIES", 3)
	v.SetDefault("MAIL_LOGIN_URL", "http://localhost:3000/login")
	v.SetDefault("MAIL_INSTITUTE_NAME", "Faculty Development Workflow")

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_RETAIN_FOR", "168h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("FINAL_SCORES_CACHE_TTL", "5m")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// parseWeights reads "Name=value,Other=value" pairs.
func parseWeights(raw string) (map[string]float64, error) {
	result := make(map[string]float64)
	for _, pair := range splitAndTrim(raw) {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", pair, err)
		}
		result[strings.TrimSpace(name)] = parsed
	}
	return result, nil
}
