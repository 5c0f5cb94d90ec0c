package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMinio  = "minio"
	StorageMemory = "memory"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	SiteURL       string

	LogLevel  string
	LogFormat string

	CaptchaEnabled bool
	MaxUploadBytes int64
	TreeCacheTTL   time.Duration

	// StorageDriver: minio (default) or memory
	StorageDriver string

	// MinIO 对象存储
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Meilisearch, empty URL disables it
	MeiliURL       string
	MeiliMasterKey string

	// Redis, empty URL falls back to the in-process cache
	RedisURL string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func Load() Config {
	return Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=studyarchive port=5432 sslmode=disable TimeZone=UTC"),
		SessionSecret:  getenv("SESSION_SECRET", "secret_key_change_me"),
		SiteURL:        strings.TrimSuffix(getenv("SITE_URL", "http://localhost:8080"), "/"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "console"),
		CaptchaEnabled: getenvBool("CAPTCHA_ENABLED", true),
		MaxUploadBytes: int64(getenvInt("MAX_UPLOAD_MB", 20)) << 20,
		TreeCacheTTL:   time.Duration(getenvInt("TREE_CACHE_TTL_SECONDS", 300)) * time.Second,
		StorageDriver:  strings.ToLower(getenv("STORAGE_DRIVER", StorageMinio)),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getenv("MINIO_BUCKET", "studyarchive"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		RedisURL:       getenv("REDIS_URL", ""),
		SMTPHost:       getenv("SMTP_HOST", ""),
		SMTPPort:       getenv("SMTP_PORT", ""),
		SMTPUser:       getenv("SMTP_USER", ""),
		SMTPPass:       getenv("SMTP_PASS", ""),
		SMTPFrom:       getenv("SMTP_FROM", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
