package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	CORS     CORSConfig
	Log      LogConfig
	Upload   UploadConfig
	Storage  StorageConfig
	Download DownloadConfig
	Viewer   ViewerConfig
	Cleanup  CleanupConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles the redis-backed listing cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadConfig controls the shared write secret and file validation.
type UploadConfig struct {
	SecretKey        string
	SecretHash       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// StorageConfig selects the object store backing document files.
type StorageConfig struct {
	Driver          string
	LocalDir        string
	Bucket          string
	PublicBaseURL   string
	GCSProjectID    string
	CredentialsFile string
	Endpoint        string
}

// DownloadConfig governs signed attachment links.
type DownloadConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// ViewerConfig tunes the server-side flipbook pipeline.
type ViewerConfig struct {
	RenderScale        float64
	MaxPageWidth       int
	MaxConcurrentLoads int
	MaxSessions        int
	SessionTTL         time.Duration
	FetchMaxBytes      int64
	FetchTimeout       time.Duration
	OfficeViewerURL    string
}

// CleanupConfig sizes the background queue retrying best-effort rollbacks.
type CleanupConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{
		SecretKey:        v.GetString("UPLOAD_SECRET_KEY"),
		SecretHash:       v.GetString("UPLOAD_SECRET_HASH"),
		MaxFileSizeBytes: maxUpload,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
	}

	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		Bucket:          v.GetString("STORAGE_BUCKET"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		GCSProjectID:    v.GetString("GCS_PROJECT_ID"),
		CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
		Endpoint:        v.GetString("GCS_ENDPOINT"),
	}

	cfg.Download = DownloadConfig{
		SignedURLSecret: v.GetString("DOWNLOAD_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOWNLOAD_SIGNED_URL_TTL"), 30*time.Minute),
	}

	scale := v.GetFloat64("VIEWER_RENDER_SCALE")
	if scale <= 0 {
		scale = 2
	}
	cfg.Viewer = ViewerConfig{
		RenderScale:        scale,
		MaxPageWidth:       v.GetInt("VIEWER_MAX_PAGE_WIDTH"),
		MaxConcurrentLoads: v.GetInt("VIEWER_MAX_CONCURRENT_LOADS"),
		MaxSessions:        v.GetInt("VIEWER_MAX_SESSIONS"),
		SessionTTL:         parseDuration(v.GetString("VIEWER_SESSION_TTL"), 30*time.Minute),
		FetchMaxBytes:      v.GetInt64("VIEWER_FETCH_MAX_BYTES"),
		FetchTimeout:       parseDuration(v.GetString("VIEWER_FETCH_TIMEOUT"), 0),
		OfficeViewerURL:    v.GetString("VIEWER_OFFICE_URL"),
	}

	cfg.Cleanup = CleanupConfig{
		Workers:    v.GetInt("CLEANUP_WORKERS"),
		Retries:    v.GetInt("CLEANUP_RETRIES"),
		RetryDelay: parseDuration(v.GetString("CLEANUP_RETRY_DELAY"), 5*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "Asia/Jakarta")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "infodoc")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOAD_SECRET_KEY", "")
	v.SetDefault("UPLOAD_SECRET_HASH", "")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 50*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,application/vnd.ms-powerpoint,application/vnd.openxmlformats-officedocument.presentationml.presentation")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./storage")
	v.SetDefault("STORAGE_BUCKET", "documents")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("GCS_PROJECT_ID", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("GCS_ENDPOINT", "")

	v.SetDefault("DOWNLOAD_SIGNED_URL_SECRET", "dev_download_secret")
	v.SetDefault("DOWNLOAD_SIGNED_URL_TTL", "30m")

	v.SetDefault("VIEWER_RENDER_SCALE", 2.0)
	v.SetDefault("VIEWER_MAX_PAGE_WIDTH", 0)
	v.SetDefault("VIEWER_MAX_CONCURRENT_LOADS", 2)
	v.SetDefault("VIEWER_MAX_SESSIONS", 256)
	v.SetDefault("VIEWER_SESSION_TTL", "30m")
	v.SetDefault("VIEWER_FETCH_MAX_BYTES", 64*1024*1024)
	v.SetDefault("VIEWER_FETCH_TIMEOUT", "")
	v.SetDefault("VIEWER_OFFICE_URL", "https://view.officeapps.live.com/op/view.aspx")

	v.SetDefault("CLEANUP_WORKERS", 1)
	v.SetDefault("CLEANUP_RETRIES", 5)
	v.SetDefault("CLEANUP_RETRY_DELAY", "5s")
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
