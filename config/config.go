package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is where Load looks for the JSON configuration file.
var DefaultPath = filepath.Join("config", "config.json")

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort           string
	JWTSecret         string
	TokenTTL          time.Duration
	SecureCookies     bool
	DefaultTimezone   string
	AllowedOrigins    []string
	OAuthRedirectBase string
	// Database
	DatabaseDriver string
	DatabaseURI    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	// Identity providers
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// Redis for caching and token revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Recommendation / chat service
	AIBaseURL string
	AIAPIKey  string
	AITimeout time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Gin framework configuration
	GinMode string
	GinPath string
	// Streak decay sweep
	SweepEnabled  bool
	SweepInterval time.Duration
	// Cache
	InsightsCacheTTL time.Duration
	ChatCacheTTL     time.Duration
	// Rate limiting
	RateLimitPerMinute int
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// envBindings maps configuration keys to the environment variables that override them.
var envBindings = map[string]string{
	"app.port":                "APP_PORT",
	"app.jwt_secret":          "JWT_SECRET",
	"app.token_ttl":           "TOKEN_TTL",
	"app.secure_cookies":      "SECURE_COOKIES",
	"app.default_timezone":    "DEFAULT_TIMEZONE",
	"app.allowed_origins":     "ALLOWED_ORIGINS",
	"app.oauth_redirect_base": "OAUTH_REDIRECT_BASE",
	"database.driver":         "DATABASE_DRIVER",
	"database.uri":            "DATABASE_URI",
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.name":           "DB_NAME",
	"oauth.github_client_id":  "GITHUB_CLIENT_ID",
	"oauth.github_secret":     "GITHUB_CLIENT_SECRET",
	"oauth.google_client_id":  "GOOGLE_CLIENT_ID",
	"oauth.google_secret":     "GOOGLE_CLIENT_SECRET",
	"redis.host":              "REDIS_HOST",
	"redis.port":              "REDIS_PORT",
	"redis.db":                "REDIS_DB",
	"redis.password":          "REDIS_PASSWORD",
	"ai.base_url":             "AI_BASE_URL",
	"ai.api_key":              "AI_API_KEY",
	"ai.timeout":              "AI_TIMEOUT",
	"log.level":               "LOG_LEVEL",
	"log.path":                "LOG_PATH",
	"log.max_size_mb":         "LOG_MAX_SIZE_MB",
	"log.max_backups":         "LOG_MAX_BACKUPS",
	"log.max_age_days":        "LOG_MAX_AGE_DAYS",
	"log.compress":            "LOG_COMPRESS",
	"gin.mode":                "GIN_MODE",
	"gin.log_path":            "GIN_LOG_PATH",
	"sweep.enabled":           "SWEEP_ENABLED",
	"sweep.interval":          "SWEEP_INTERVAL",
	"cache.insights_ttl":      "INSIGHTS_CACHE_TTL",
	"cache.chat_ttl":          "CHAT_CACHE_TTL",
	"rate_limit.per_minute":   "RATE_LIMIT_PER_MINUTE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.token_ttl", 7*24*time.Hour)
	v.SetDefault("app.default_timezone", "UTC")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.name", "neurowell")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("ai.timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("gin.mode", "release")
	v.SetDefault("gin.log_path", "logs/gin.log")
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("cache.insights_ttl", time.Hour)
	v.SetDefault("cache.chat_ttl", 10*time.Minute)
	v.SetDefault("rate_limit.per_minute", 120)
}

// LoadFrom reads configuration with precedence defaults -> JSON file -> environment variables.
// A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return AppConfig{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	out := AppConfig{
		AppPort:            v.GetString("app.port"),
		JWTSecret:          v.GetString("app.jwt_secret"),
		TokenTTL:           v.GetDuration("app.token_ttl"),
		SecureCookies:      v.GetBool("app.secure_cookies"),
		DefaultTimezone:    v.GetString("app.default_timezone"),
		AllowedOrigins:     splitList(v.GetStringSlice("app.allowed_origins")),
		OAuthRedirectBase:  v.GetString("app.oauth_redirect_base"),
		DatabaseDriver:     strings.ToLower(v.GetString("database.driver")),
		DatabaseURI:        v.GetString("database.uri"),
		DBHost:             v.GetString("database.host"),
		DBPort:             v.GetString("database.port"),
		DBUser:             v.GetString("database.user"),
		DBPassword:         v.GetString("database.password"),
		DBName:             v.GetString("database.name"),
		GitHubClientID:     v.GetString("oauth.github_client_id"),
		GitHubClientSecret: v.GetString("oauth.github_secret"),
		GoogleClientID:     v.GetString("oauth.google_client_id"),
		GoogleClientSecret: v.GetString("oauth.google_secret"),
		RedisHost:          v.GetString("redis.host"),
		RedisPort:          v.GetInt("redis.port"),
		RedisDB:            v.GetInt("redis.db"),
		RedisPassword:      v.GetString("redis.password"),
		AIBaseURL:          strings.TrimRight(v.GetString("ai.base_url"), "/"),
		AIAPIKey:           v.GetString("ai.api_key"),
		AITimeout:          v.GetDuration("ai.timeout"),
		LogLevel:           v.GetString("log.level"),
		LogPath:            v.GetString("log.path"),
		LogMaxSizeMB:       v.GetInt("log.max_size_mb"),
		LogMaxBackups:      v.GetInt("log.max_backups"),
		LogMaxAgeDays:      v.GetInt("log.max_age_days"),
		LogCompress:        v.GetBool("log.compress"),
		GinMode:            v.GetString("gin.mode"),
		GinPath:            v.GetString("gin.log_path"),
		SweepEnabled:       v.GetBool("sweep.enabled"),
		SweepInterval:      v.GetDuration("sweep.interval"),
		InsightsCacheTTL:   v.GetDuration("cache.insights_ttl"),
		ChatCacheTTL:       v.GetDuration("cache.chat_ttl"),
		RateLimitPerMinute: v.GetInt("rate_limit.per_minute"),
	}
	return out, nil
}

// Validate reports configuration that would make the HTTP server unsafe to start.
func (c AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in environment variables")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// Load loads the application configuration from DefaultPath and the environment and caches it.
func Load() (AppConfig, error) {
	out, err := LoadFrom(DefaultPath)
	if err != nil {
		return AppConfig{}, err
	}
	Set(out)
	return out, nil
}

// Set replaces the cached configuration.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	out, err := Load()
	if err != nil {
		out, _ = LoadFrom("")
		Set(out)
	}
	return out
}

// Location resolves the configured default timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	if c.DefaultTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// splitList accepts both JSON arrays and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
