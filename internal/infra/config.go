package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment
// variables. Every remote endpoint and secret lives here; nothing is
// hard-coded at call sites.
type Config struct {
	AppEnv string
	Port   string

	// Persistence. Exactly one backend is required: a direct Postgres URL or
	// the remote SQL-proxy endpoint plus its bearer token.
	DatabaseURL   string
	SQLProxyURL   string
	SQLProxyToken string

	JWTSecret string

	// Execution-service task pipeline.
	TaskProxyURL        string
	TaskFunctionsBaseID string
	TaskAPIHost         string
	TaskTimeout         time.Duration
	TaskPollInterval    time.Duration

	// File-permanence service.
	FileConvertURL  string
	FileUploadToken string

	// Speech-to-text service.
	AudioUploadURL string
	AudioSTTURL    string

	RedisAddr   string
	GeoIPDBPath string

	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLProxyURL:         os.Getenv("SQL_PROXY_URL"),
		SQLProxyToken:       os.Getenv("SQL_PROXY_TOKEN"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TaskProxyURL:        getEnv("TASK_PROXY_URL", "https://eu1.account.dialog.ai.atiks.org/proxy/tasks"),
		TaskFunctionsBaseID: getEnv("TASK_FUNCTIONS_BASE_ID", "appkq3HrzrxYxoAV8"),
		TaskAPIHost:         getEnv("TASK_API_HOST", "api.pro-talk.ru"),
		TaskTimeout:         time.Second * time.Duration(getEnvInt("TASK_TIMEOUT_SECONDS", 300)),
		TaskPollInterval:    time.Second * time.Duration(getEnvInt("TASK_POLL_INTERVAL_SECONDS", 8)),
		FileConvertURL:      getEnv("FILE_CONVERT_URL", "https://file.pro-talk.ru/tgf"),
		FileUploadToken:     os.Getenv("FILE_UPLOAD_TOKEN"),
		AudioUploadURL:      getEnv("AUDIO_UPLOAD_URL", "https://file.pro-talk.ru/upload_tmp"),
		AudioSTTURL:         getEnv("AUDIO_STT_URL", "https://api.pro-talk.ru/api/v1.0/stt_from_widget"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:      splitList(os.Getenv("ALLOWED_ORIGINS")),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.DatabaseURL == "" && cfg.SQLProxyURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or SQL_PROXY_URL is required")
	}
	if cfg.DatabaseURL == "" && cfg.SQLProxyToken == "" {
		return nil, fmt.Errorf("SQL_PROXY_TOKEN is required when using SQL_PROXY_URL")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
