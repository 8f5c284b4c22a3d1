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

// Placeholder values shipped in the sample .env. They count as "not configured".
const (
	PlaceholderSupabaseURL     = "YOUR_SUPABASE_URL"
	PlaceholderSupabaseAnonKey = "YOUR_SUPABASE_ANON_KEY"
	PlaceholderAPIKey          = "YOUR_API_KEY"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Backend  BackendConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Session  SessionConfig
	Search   SearchConfig
	Events   EventsConfig
	Storage  StorageConfig
	CORS     CORSConfig
	Log      LogConfig
}

// BackendConfig points at the hosted backend-as-a-service project.
type BackendConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	JWTSecret  string
	Timeout    time.Duration
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

// LLMConfig configures the hosted language model used for search parsing.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// SessionConfig tunes the per-browser session controllers.
type SessionConfig struct {
	CookieName     string
	CookieSecure   bool
	IdleTTL        time.Duration
	MockDelay      time.Duration
	LoginMockDelay time.Duration
	LoadTimeout    time.Duration
	SweepSchedule  string
	MaxActive      int
	RedirectURL    string
}

// SearchConfig governs the search pipeline.
type SearchConfig struct {
	Debounce time.Duration
	Timezone string
}

// EventsConfig governs event list and statistics caching.
type EventsConfig struct {
	CacheEnabled  bool
	CacheTTL      time.Duration
	StatsCacheTTL time.Duration
}

// StorageConfig selects where event images are written.
type StorageConfig struct {
	Driver        string
	Bucket        string
	LocalDir      string
	MaxImageBytes int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Backend = BackendConfig{
		URL:        strings.TrimSpace(v.GetString("SUPABASE_URL")),
		AnonKey:    strings.TrimSpace(v.GetString("SUPABASE_ANON_KEY")),
		ServiceKey: strings.TrimSpace(v.GetString("SUPABASE_SERVICE_KEY")),
		JWTSecret:  v.GetString("SUPABASE_JWT_SECRET"),
		Timeout:    parseDuration(v.GetString("SUPABASE_TIMEOUT"), 10*time.Second),
	}

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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.LLM = LLMConfig{
		APIKey:      strings.TrimSpace(v.GetString("GROQ_API_KEY")),
		BaseURL:     v.GetString("LLM_BASE_URL"),
		Model:       v.GetString("LLM_MODEL"),
		Temperature: float32(v.GetFloat64("LLM_TEMPERATURE")),
	}

	cfg.Session = SessionConfig{
		CookieName:     v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure:   cfg.Env == EnvProduction,
		IdleTTL:        parseDuration(v.GetString("SESSION_IDLE_TTL"), 30*time.Minute),
		MockDelay:      parseDuration(v.GetString("SESSION_MOCK_DELAY"), time.Second),
		LoginMockDelay: parseDuration(v.GetString("SESSION_LOGIN_MOCK_DELAY"), 1500*time.Millisecond),
		LoadTimeout:    parseDuration(v.GetString("SESSION_LOAD_TIMEOUT"), 5*time.Second),
		SweepSchedule:  v.GetString("SESSION_SWEEP_SCHEDULE"),
		MaxActive:      v.GetInt("SESSION_MAX_ACTIVE"),
		RedirectURL:    v.GetString("AUTH_REDIRECT_URL"),
	}

	cfg.Search = SearchConfig{
		Debounce: parseDuration(v.GetString("SEARCH_DEBOUNCE"), 500*time.Millisecond),
		Timezone: v.GetString("APP_TIMEZONE"),
	}

	cfg.Events = EventsConfig{
		CacheEnabled:  v.GetBool("EVENTS_CACHE_ENABLED"),
		CacheTTL:      parseDuration(v.GetString("EVENTS_CACHE_TTL"), time.Minute),
		StatsCacheTTL: parseDuration(v.GetString("ADMIN_STATS_CACHE_TTL"), 5*time.Minute),
	}

	maxImage := v.GetInt64("STORAGE_MAX_IMAGE_BYTES")
	if maxImage <= 0 {
		maxImage = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:        strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Bucket:        v.GetString("STORAGE_BUCKET"),
		LocalDir:      v.GetString("STORAGE_LOCAL_DIR"),
		MaxImageBytes: maxImage,
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_SERVICE_KEY", "")
	v.SetDefault("SUPABASE_JWT_SECRET", "")
	v.SetDefault("SUPABASE_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "require")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("GROQ_API_KEY", "")
	v.SetDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("LLM_MODEL", "llama3-8b-8192")
	v.SetDefault("LLM_TEMPERATURE", 0.2)

	v.SetDefault("SESSION_COOKIE_NAME", "gt_session")
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("SESSION_MOCK_DELAY", "1s")
	v.SetDefault("SESSION_LOGIN_MOCK_DELAY", "1500ms")
	v.SetDefault("SESSION_LOAD_TIMEOUT", "5s")
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "@every 1m")
	v.SetDefault("SESSION_MAX_ACTIVE", 10000)
	v.SetDefault("AUTH_REDIRECT_URL", "http://localhost:5173/auth/callback")

	v.SetDefault("SEARCH_DEBOUNCE", "500ms")
	v.SetDefault("APP_TIMEZONE", "Local")

	v.SetDefault("EVENTS_CACHE_ENABLED", false)
	v.SetDefault("EVENTS_CACHE_TTL", "1m")
	v.SetDefault("ADMIN_STATS_CACHE_TTL", "5m")

	v.SetDefault("STORAGE_DRIVER", "supabase")
	v.SetDefault("STORAGE_BUCKET", "event-images")
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_MAX_IMAGE_BYTES", 5*1024*1024)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Location resolves the configured timezone, falling back to the process local zone.
func (c SearchConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsPlaceholder reports whether a credential is empty or one of the shipped sentinels.
func IsPlaceholder(value string, sentinels ...string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	for _, s := range sentinels {
		if value == s {
			return true
		}
	}
	return false
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
